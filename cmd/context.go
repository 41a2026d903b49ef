package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	contextDir      = ".doctree"
	contextFileName = "context"
)

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

// Context holds the site and culture node commands fall back to.
type Context struct {
	Site    string `mapstructure:"site"`
	Culture string `mapstructure:"culture"`
}

// saves the context info to ./.doctree/context.yml
func setContextCommand() *cobra.Command {
	var site string
	var culture string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		RunE: func(cmd *cobra.Command, args []string) error {
			if site == "" && culture == "" {
				color.Red(`missing: --site or --culture`)
				return nil
			}

			current := readContext()
			if site != "" {
				current.Site = site
			}
			if culture != "" {
				current.Culture = culture
			}
			if err := writeContext(current); err != nil {
				return err
			}
			color.Green("context saved")
			return nil
		},
	}

	command.Flags().StringVarP(&site, "site", "s", "", "default site")
	command.Flags().StringVarP(&culture, "culture", "c", "", "default culture")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			current := readContext()
			printField("site", current.Site)
			printField("culture", current.Culture)
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := os.Remove(contextPath())
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			color.Green("context cleared")
			return nil
		},
	}

	return command
}

func contextPath() string {
	return filepath.Join(contextDir, contextFileName+".yml")
}

func writeContext(ctx Context) error {
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(contextPath())
	v.Set("site", ctx.Site)
	v.Set("culture", ctx.Culture)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing context file: %w", err)
	}
	return nil
}

func readContext() Context {
	var ctx Context

	v := viper.New()
	v.SetConfigFile(contextPath())
	if err := v.ReadInConfig(); err != nil {
		return ctx
	}
	if err := v.Unmarshal(&ctx); err != nil {
		color.Yellow("ignoring context file: %v", err)
	}

	return ctx
}

// siteAndCulture fills empty flag values from the saved context.
func siteAndCulture(site, culture string) (string, string) {
	if site != "" && culture != "" {
		return site, culture
	}

	current := readContext()
	if site == "" {
		site = current.Site
	}
	if culture == "" {
		culture = current.Culture
	}
	return site, culture
}
