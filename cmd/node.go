package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emrgen/doctree"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/tree"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "node commands",
}

func init() {
	nodeCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	nodeCmd.AddCommand(createNodeCmd())
	nodeCmd.AddCommand(getNodeCmd())
	nodeCmd.AddCommand(listNodeCmd())
	nodeCmd.AddCommand(updateNodeCmd())
	nodeCmd.AddCommand(translateNodeCmd())
	nodeCmd.AddCommand(moveNodeCmd())
	nodeCmd.AddCommand(linkNodeCmd())
	nodeCmd.AddCommand(orderNodeCmd())
	nodeCmd.AddCommand(deleteNodeCmd())
	nodeCmd.AddCommand(historyNodeCmd())
}

// target names one node by site, alias path and culture.
type target struct {
	site    string
	path    string
	culture string
}

func (t *target) bind(command *cobra.Command, pathUsage string) {
	command.Flags().StringVarP(&t.site, "site", "s", "", "site code name, defaults to the context site")
	command.Flags().StringVarP(&t.path, "path", "p", "", pathUsage)
	command.Flags().StringVarP(&t.culture, "culture", "c", "", "culture, defaults to the context culture")
}

func (t *target) resolve() {
	t.site, t.culture = siteAndCulture(t.site, t.culture)
}

func (t *target) load(ctx context.Context, app *doctree.App) (*tree.Node, error) {
	t.resolve()
	if t.site == "" {
		return nil, fmt.Errorf("missing: --site (or doctree context set --site)")
	}
	return app.Tree.SelectSingleNode(ctx, t.site, t.path, t.culture, true)
}

func setValues(n *tree.Node, name string, assignments []string) error {
	values, err := parseAssignments(assignments)
	if err != nil {
		return err
	}
	if name != "" {
		values[tree.FieldDocumentName] = name
	}
	for field, value := range values {
		if err := n.SetValue(field, value); err != nil {
			return err
		}
	}
	return nil
}

func createNodeCmd() *cobra.Command {
	var parent target
	var typeName string
	var name string
	var assignments []string

	var required = []string{"path", "type", "name"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a node below a parent",
		Example: "doctree node create -s main -p /Products -t shop.product -n Widget --set Price=9.5",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			p, err := parent.load(ctx, app)
			if err != nil {
				return err
			}

			n, err := app.Tree.NewNode(ctx, typeName)
			if err != nil {
				return err
			}
			if parent.culture != "" {
				if err = n.SetValue(tree.FieldDocumentCulture, parent.culture); err != nil {
					return err
				}
			}
			if err = setValues(n, name, assignments); err != nil {
				return err
			}
			if err = n.Insert(ctx, p); err != nil {
				return err
			}
			if reason := n.CancelReason(); reason != "" {
				color.Yellow("insert cancelled: %s", reason)
				return nil
			}

			color.Green("node %d created at %s", n.ID(), n.AliasPath())
			return nil
		},
	}

	parent.bind(command, "alias path of the parent (required)")
	command.Flags().StringVarP(&typeName, "type", "t", "", "document type (required)")
	command.Flags().StringVarP(&name, "name", "n", "", "document name (required)")
	command.Flags().StringArrayVar(&assignments, "set", nil, "field value as name=value")

	command.Flags().SortFlags = false

	return command
}

func getNodeCmd() *cobra.Command {
	var node target

	command := &cobra.Command{
		Use:   "get",
		Short: "show a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := node.load(context.Background(), app)
			if err != nil {
				return err
			}

			printField("ID", strconv.FormatUint(n.ID(), 10))
			printField("Document", strconv.FormatUint(n.DocumentID(), 10))
			printField("Path", n.AliasPath())
			printField("Name", n.Name())
			printField("Culture", n.CultureCode())
			printField("Type", n.Type().Name())
			printField("URL", n.Culture.URLPath)
			if n.IsLink() {
				printField("Link to", strconv.FormatUint(n.OriginalNodeID(), 10))
			}
			for _, field := range n.Type().FieldNames() {
				v, _ := n.GetValue(field)
				printField(field, fmt.Sprint(v))
			}
			return nil
		},
	}

	node.bind(command, "alias path of the node")

	return command
}

func listNodeCmd() *cobra.Command {
	var node target
	var types []string
	var level int
	var published bool
	var top int
	var combine bool

	command := &cobra.Command{
		Use:     "list",
		Short:   "list nodes",
		Example: `doctree node list -s main -p "/Products/%" -l 1 -t shop.product`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			node.resolve()
			q := app.Tree.Query().
				Types(types...).
				Published(published).
				CombineWithDefaultCulture(combine).
				TopN(top)
			if node.site != "" {
				q.OnSite(node.site)
			}
			if node.path != "" {
				q.Path(node.path)
			}
			if node.culture != "" {
				q.Culture(node.culture)
			}
			if cmd.Flag("level").Changed {
				q.MaxRelativeLevel(level)
			}

			nodes, err := q.Find(context.Background())
			if err != nil {
				return err
			}

			table := newTable("ID", "Path", "Name", "Culture", "Type", "Order", "Link")
			for _, n := range nodes {
				link := ""
				if n.IsLink() {
					link = strconv.FormatUint(n.OriginalNodeID(), 10)
				}
				table.Append([]string{
					strconv.FormatUint(n.ID(), 10),
					n.AliasPath(),
					n.Name(),
					n.CultureCode(),
					n.Type().Name(),
					strconv.Itoa(n.Structural.Order),
					link,
				})
			}
			table.Render()
			return nil
		},
	}

	node.bind(command, "alias path or pattern with %")
	command.Flags().StringSliceVarP(&types, "types", "t", nil, "document types")
	command.Flags().IntVarP(&level, "level", "l", 0, "maximum level below the path")
	command.Flags().BoolVar(&published, "published", false, "published versions only")
	command.Flags().IntVar(&top, "top", 0, "maximum number of nodes")
	command.Flags().BoolVar(&combine, "combine", false, "fall back to the site default culture")

	command.Flags().SortFlags = false

	return command
}

func updateNodeCmd() *cobra.Command {
	var node target
	var name string
	var assignments []string

	command := &cobra.Command{
		Use:     "update",
		Short:   "update fields of a node",
		Example: "doctree node update -s main -p /Products/Widget -n Gadget --set Price=12",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}
			if err = setValues(n, name, assignments); err != nil {
				return err
			}
			if len(n.ChangedColumns()) == 0 {
				color.Yellow("nothing changed")
				return nil
			}
			changed := strings.Join(n.ChangedColumns(), ", ")
			if err = n.Update(ctx); err != nil {
				return err
			}
			if reason := n.CancelReason(); reason != "" {
				color.Yellow("update cancelled: %s", reason)
				return nil
			}

			color.Green("updated %s: %s", n.AliasPath(), changed)
			return nil
		},
	}

	node.bind(command, "alias path of the node")
	command.Flags().StringVarP(&name, "name", "n", "", "new document name")
	command.Flags().StringArrayVar(&assignments, "set", nil, "field value as name=value")

	return command
}

func translateNodeCmd() *cobra.Command {
	var node target
	var to string
	var name string
	var assignments []string

	var required = []string{"to"}

	command := &cobra.Command{
		Use:     "translate",
		Short:   "create a culture version of a node from an existing one",
		Example: "doctree node translate -s main -p /Products -c en-US --to de-DE -n Produkte",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}
			if err = setValues(n, name, assignments); err != nil {
				return err
			}
			if err = n.InsertAsNewCultureVersion(ctx, to); err != nil {
				return err
			}

			color.Green("culture version %s of %s created", to, n.AliasPath())
			return nil
		},
	}

	node.bind(command, "alias path of the node")
	command.Flags().StringVar(&to, "to", "", "new culture (required)")
	command.Flags().StringVarP(&name, "name", "n", "", "document name in the new culture")
	command.Flags().StringArrayVar(&assignments, "set", nil, "field value as name=value")

	return command
}

func moveNodeCmd() *cobra.Command {
	var node target
	var to target

	var required = []string{"to"}

	command := &cobra.Command{
		Use:     "move",
		Short:   "move a node below another parent, on any site",
		Example: "doctree node move -s main -p /Products/Widget --to /Archive --to-site archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}
			if to.site == "" {
				to.site = node.site
			}
			to.culture = node.culture
			parent, err := to.load(ctx, app)
			if err != nil {
				return err
			}

			if parent.SiteID() != n.SiteID() {
				err = app.Tree.MoveToSite(ctx, n, parent)
			} else {
				if err = n.SetValue(tree.FieldNodeParentID, parent.ID()); err != nil {
					return err
				}
				err = n.Update(ctx)
			}
			if err != nil {
				return err
			}

			color.Green("moved to %s", n.AliasPath())
			return nil
		},
	}

	node.bind(command, "alias path of the node")
	command.Flags().StringVar(&to.path, "to", "", "alias path of the new parent (required)")
	command.Flags().StringVar(&to.site, "to-site", "", "site of the new parent")

	return command
}

func linkNodeCmd() *cobra.Command {
	var node target
	var to target

	var required = []string{"to"}

	command := &cobra.Command{
		Use:     "link",
		Short:   "link a node below another parent",
		Example: "doctree node link -s main -p /Products/Widget --to /Featured",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}
			if to.site == "" {
				to.site = node.site
			}
			to.culture = node.culture
			parent, err := to.load(ctx, app)
			if err != nil {
				return err
			}

			link, err := n.InsertAsLink(ctx, parent)
			if err != nil {
				return err
			}
			if link == nil {
				color.Yellow("link cancelled: %s", n.CancelReason())
				return nil
			}

			color.Green("link %d created at %s", link.ID(), link.AliasPath())
			return nil
		},
	}

	node.bind(command, "alias path of the original")
	command.Flags().StringVar(&to.path, "to", "", "alias path of the link parent (required)")
	command.Flags().StringVar(&to.site, "to-site", "", "site of the link parent")

	return command
}

func orderNodeCmd() *cobra.Command {
	var node target
	var up, down bool
	var position int

	command := &cobra.Command{
		Use:     "order",
		Short:   "change the position of a node among its siblings",
		Example: "doctree node order -s main -p /Products/Widget --up",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}

			switch {
			case up:
				err = app.Tree.MoveUp(ctx, n)
			case down:
				err = app.Tree.MoveDown(ctx, n)
			case cmd.Flag("position").Changed:
				err = app.Tree.SetOrder(ctx, n, position)
			default:
				color.Red("missing: --up, --down or --position")
				return nil
			}
			if err != nil {
				return err
			}

			color.Green("%s is at position %d", n.AliasPath(), n.Structural.Order)
			return nil
		},
	}

	node.bind(command, "alias path of the node")
	command.Flags().BoolVar(&up, "up", false, "move one position up")
	command.Flags().BoolVar(&down, "down", false, "move one position down")
	command.Flags().IntVar(&position, "position", 0, "zero based position")

	return command
}

func deleteNodeCmd() *cobra.Command {
	var node target
	var opts tree.DeleteOptions

	command := &cobra.Command{
		Use:     "delete",
		Short:   "delete a culture version, or the node with its last one",
		Example: "doctree node delete -s main -p /Products --all-cultures --destroy-history",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}

			removed, err := n.Delete(ctx, opts)
			if err != nil {
				return err
			}
			switch {
			case n.CancelReason() != "":
				color.Yellow("delete cancelled: %s", n.CancelReason())
			case removed:
				color.Green("node %s deleted", n.AliasPath())
			default:
				color.Green("culture version %s of %s deleted", n.CultureCode(), n.AliasPath())
			}
			return nil
		},
	}

	node.bind(command, "alias path of the node")
	command.Flags().BoolVar(&opts.AllCultures, "all-cultures", false, "delete every culture version")
	command.Flags().BoolVar(&opts.DestroyHistory, "destroy-history", false, "remove version history")
	command.Flags().BoolVar(&opts.KeepChildren, "keep-children", false, "move children to the parent")
	command.Flags().BoolVar(&opts.AllowRoot, "allow-root", false, "allow deleting a site root")

	return command
}

func historyNodeCmd() *cobra.Command {
	var node target

	command := &cobra.Command{
		Use:   "history",
		Short: "list the version history of a culture version, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			n, err := node.load(ctx, app)
			if err != nil {
				return err
			}
			history, err := n.Connected().Get(ctx, tree.CollectionHistory)
			if err != nil {
				return err
			}

			table := newTable("ID", "Version", "Modified")
			for _, item := range history.Items {
				h, ok := item.(*model.VersionHistory)
				if !ok {
					continue
				}
				table.Append([]string{
					strconv.FormatUint(h.ID, 10),
					h.VersionNumber,
					h.ModifiedWhen.Format("2006-01-02 15:04:05"),
				})
			}
			table.Render()
			return nil
		},
	}

	node.bind(command, "alias path of the node")

	return command
}
