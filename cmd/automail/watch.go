package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/dispatch"
)

var watchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow dispatch progress published by a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cfg.Redis.Enabled {
			return errors.New("watch needs redis; set AUTOMAIL_REDIS_ENABLED=true")
		}

		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		sub := rdb.Subscribe(cmd.Context(), cfg.Redis.Channel)
		defer sub.Close()

		fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", cfg.Redis.Channel)
		return follow(cmd.Context(), sub.Channel(), cmd.OutOrStdout(), watchOnce)
	},
}

// follow prints every event until ctx ends or, with once set, the first run
// completes. Each run gets a fresh printer.
func follow(ctx context.Context, msgs <-chan *redis.Message, w io.Writer, once bool) error {
	var (
		printer *dispatch.Printer
		runID   string
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			var ev dispatch.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				fmt.Fprintf(w, "skipping malformed event: %v\n", err)
				continue
			}
			if printer == nil || ev.RunID != runID {
				printer, runID = dispatch.NewPrinter(w), ev.RunID
				fmt.Fprintf(w, "run %s\n", runID)
			}

			switch ev.Type {
			case dispatch.EventStatus:
				if ev.Status != nil {
					printer.OnStatus(ev.RunID, *ev.Status)
				}
			case dispatch.EventComplete:
				if ev.Summary != nil {
					printer.OnComplete(*ev.Summary)
				}
				if once {
					return nil
				}
			}
		}
	}
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "exit after the first run completes")
}
