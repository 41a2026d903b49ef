package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "maintenance task commands",
}

func init() {
	jobsCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	jobsCmd.AddCommand(runJobsCmd())
	jobsCmd.AddCommand(runJobOnceCmd())
	jobsCmd.AddCommand(listJobsCmd())
}

func runJobsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "run the scheduled tasks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
			defer stop()

			if err = app.Jobs.Start(ctx); err != nil {
				return err
			}
			logrus.Infof("running %d tasks", len(app.Jobs.Jobs()))

			<-ctx.Done()
			app.Jobs.Stop()
			return nil
		},
	}

	return command
}

func runJobOnceCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "once <task>",
		Short:   "run one task now",
		Example: "doctree jobs once link_consistency",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err = app.Jobs.RunOnce(context.Background(), args[0]); err != nil {
				return err
			}
			color.Green("task %s done", args[0])
			return nil
		},
	}

	return command
}

func listJobsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list the scheduled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			table := newTable("Task", "Schedule")
			for _, job := range app.Jobs.Jobs() {
				table.Append([]string{job.Name(), job.Schedule()})
			}
			table.Render()
			return nil
		},
	}

	return command
}
