package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automail/automail/internal/app"
	"github.com/automail/automail/internal/dispatch"
)

var sendInput struct {
	templateID string
	batchID    string
	dryRun     bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a template to every recipient of a batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := dispatch.NewPrinter(cmd.OutOrStdout())
		opts := app.Options{DryRun: sendInput.dryRun, Observers: []dispatch.Observer{printer}}

		return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
			if b, err := a.Batches.Get(ctx, sendInput.batchID); err == nil {
				printer.Track(b.Recipients)
			}

			summary, err := a.Send.Run(ctx, sendInput.templateID, sendInput.batchID)
			switch {
			case errors.Is(err, dispatch.ErrAuthExpired):
				return fmt.Errorf("%w: run 'automail settings login'", err)
			case err != nil:
				return err
			}

			if summary.SuccessCount < summary.TotalCount {
				return fmt.Errorf("%d of %d messages failed", summary.TotalCount-summary.SuccessCount, summary.TotalCount)
			}
			return nil
		})
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendInput.templateID, "template", "t", "", "template id")
	f.StringVarP(&sendInput.batchID, "batch", "b", "", "batch id")
	f.BoolVar(&sendInput.dryRun, "dry-run", false, "log messages instead of sending them")
	sendCmd.MarkFlagRequired("template")
	sendCmd.MarkFlagRequired("batch")
}
