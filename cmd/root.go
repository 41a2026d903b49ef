package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "doctree",
	Short: "document tree management tool",
	Example: `doctree db migrate
doctree site create -n main -c en-US --cultures de-DE
doctree type register -n shop.product -f Title:text -f Price:decimal
doctree node create -s main -p / -t shop.product -n Products --set Title=Catalog
doctree node list -s main -p "/Products/%" -l 1
doctree node delete -s main -p /Products --all-cultures
doctree jobs run`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding doctree.yml")

	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(contextCommand)
	rootCmd.AddCommand(siteCmd)
	rootCmd.AddCommand(typeCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
