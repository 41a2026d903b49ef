package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emrgen/doctree/internal/eventlog"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "audit record commands",
}

func init() {
	eventsCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	eventsCmd.AddCommand(listEventsCmd())
}

func listEventsCmd() *cobra.Command {
	var nodeID uint64
	var limit int
	var diff bool

	command := &cobra.Command{
		Use:     "list",
		Short:   "list the newest audit records",
		Example: "doctree events list --node 42 --diff",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			events, err := app.Store.ListEventLogs(context.Background(), nodeID, limit)
			if err != nil {
				return err
			}

			header := []string{"Time", "Event", "Node", "Path", "Description", "User"}
			if diff {
				header = append(header, "Diff")
			}
			table := newTable(header...)
			for _, e := range events {
				row := []string{
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.EventCode,
					strconv.FormatUint(e.NodeID, 10),
					e.AliasPath,
					e.Description,
					e.UserName,
				}
				if diff {
					text, err := eventlog.DecodeDiff(e)
					if err != nil {
						text = "<" + err.Error() + ">"
					}
					row = append(row, text)
				}
				table.Append(row)
			}
			table.Render()
			return nil
		},
	}

	command.Flags().Uint64Var(&nodeID, "node", 0, "only records of this node")
	command.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of records")
	command.Flags().BoolVar(&diff, "diff", false, "show field changes")

	return command
}
