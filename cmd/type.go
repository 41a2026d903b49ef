package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/tree"
)

var typeCmd = &cobra.Command{
	Use:   "type",
	Short: "document type commands",
}

func init() {
	typeCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	typeCmd.AddCommand(registerTypeCmd())
	typeCmd.AddCommand(listTypeCmd())
}

func registerTypeCmd() *cobra.Command {
	var in tree.TypeInput
	var fields []string

	var required = []string{"name"}

	command := &cobra.Command{
		Use:     "register",
		Short:   "register or update a document type",
		Example: "doctree type register -n shop.product -f Title:text:required -f Price:decimal --name-source Title",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkMissingFlags(cmd, required) {
				return nil
			}

			defs, err := parseFields(fields)
			if err != nil {
				return err
			}
			in.Fields = defs

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			t, err := app.Tree.RegisterType(context.Background(), in)
			if err != nil {
				return err
			}

			color.Green("type %s registered with id %d", t.Name(), t.ID())
			return nil
		},
	}

	command.Flags().StringVarP(&in.Name, "name", "n", "", "code name of the type (required)")
	command.Flags().StringVarP(&in.DisplayName, "display-name", "d", "", "display name of the type")
	command.Flags().StringVar(&in.NameSourceField, "name-source", "", "field the document name is taken from")
	command.Flags().IntVar(&in.AliasMaxLength, "alias-max-length", 0, "maximum alias length")
	command.Flags().StringArrayVarP(&fields, "field", "f", nil, "extension field as name:kind[:required]")

	command.Flags().SortFlags = false

	return command
}

// parseFields reads name:kind[:required] definitions.
func parseFields(specs []string) ([]model.FieldDefinition, error) {
	defs := make([]model.FieldDefinition, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("expected name:kind[:required], got %q", spec)
		}

		def := model.FieldDefinition{Name: parts[0], Kind: model.FieldKind(parts[1])}
		if len(parts) == 3 {
			if parts[2] != "required" {
				return nil, fmt.Errorf("unknown field option %q", parts[2])
			}
			def.Required = true
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func listTypeCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list document types",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			types, err := app.Tree.Types(context.Background())
			if err != nil {
				return err
			}

			table := newTable("ID", "Name", "Name Source", "Fields")
			for _, t := range types {
				fields := make([]string, 0, len(t.Fields))
				for _, f := range t.Fields {
					fields = append(fields, fmt.Sprintf("%s:%s", f.Name, f.Kind))
				}
				table.Append([]string{
					strconv.FormatUint(uint64(t.ID()), 10),
					t.Name(),
					t.Model.NameSourceField,
					strings.Join(fields, ", "),
				})
			}
			table.Render()
			return nil
		},
	}

	return command
}
