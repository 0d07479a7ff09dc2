package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/mini-office/internal/persistence"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print recent events from the saved office",
		RunE:  runEvents,
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of events")
	return cmd
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := db.RecentEvents(limit)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	out := cmd.OutOrStdout()
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		fmt.Fprintf(out, "%8s  %-12s %s\n", humanize.Comma(int64(e.Tick)), e.Category, e.Description)
	}
	return nil
}
