package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emrgen/doctree/internal/tree"
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "site commands",
}

func init() {
	siteCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	siteCmd.AddCommand(createSiteCmd())
	siteCmd.AddCommand(listSiteCmd())
	siteCmd.AddCommand(addCultureCmd())
}

func createSiteCmd() *cobra.Command {
	var in tree.SiteInput

	var required = []string{"name", "culture"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a site with its root node",
		Example: "doctree site create -n main -c en-US --cultures de-DE,fr-FR",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			root, err := app.Tree.CreateSite(context.Background(), in)
			if err != nil {
				return err
			}

			color.Green("site %s created with root node %d", in.Name, root.ID())
			return nil
		},
	}

	command.Flags().StringVarP(&in.Name, "name", "n", "", "code name of the site (required)")
	command.Flags().StringVarP(&in.DisplayName, "display-name", "d", "", "display name of the site")
	command.Flags().StringVarP(&in.DefaultCulture, "culture", "c", "", "default culture (required)")
	command.Flags().StringSliceVar(&in.Cultures, "cultures", nil, "other allowed cultures")
	command.Flags().StringVarP(&in.RootType, "root-type", "t", "", "document type of the root node")

	command.Flags().SortFlags = false

	return command
}

func listSiteCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			sites, err := app.Store.ListSites(ctx)
			if err != nil {
				return err
			}

			table := newTable("ID", "Name", "Display Name", "Default Culture", "Cultures")
			for _, site := range sites {
				cultures, err := app.Store.ListSiteCultures(ctx, site.ID)
				if err != nil {
					return err
				}
				table.Append([]string{
					strconv.FormatUint(uint64(site.ID), 10),
					site.Name,
					site.DisplayName,
					site.DefaultCulture,
					strings.Join(cultures, ", "),
				})
			}
			table.Render()
			return nil
		},
	}

	return command
}

func addCultureCmd() *cobra.Command {
	var site string
	var culture string

	var required = []string{"site", "culture"}

	command := &cobra.Command{
		Use:     "add-culture",
		Short:   "allow a culture on a site",
		Example: "doctree site add-culture -s main -c fr-FR",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err = app.Tree.AddCulture(context.Background(), site, culture); err != nil {
				return err
			}
			color.Green("culture %s allowed on %s", culture, site)
			return nil
		},
	}

	command.Flags().StringVarP(&site, "site", "s", "", "site code name (required)")
	command.Flags().StringVarP(&culture, "culture", "c", "", "culture code (required)")

	return command
}
