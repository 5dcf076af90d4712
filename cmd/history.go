package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tomasfh/compwatch/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently sent notifications (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stateDir, _ := cmd.Flags().GetString("state-dir")
		if stateDir == "" {
			stateDir = viper.GetString("watch.state_dir")
		}
		if stateDir == "" {
			var err error
			stateDir, err = defaultStateDir()
			if err != nil {
				return err
			}
		}
		dbPath := filepath.Join(stateDir, "notifications.sqlite")
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("notification log not found: %s", dbPath)
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		var sent []storage.SentNotification
		if sinceStr, _ := cmd.Flags().GetString("since"); sinceStr != "" {
			since, err := time.Parse(time.RFC3339, sinceStr)
			if err != nil {
				return fmt.Errorf("bad --since timestamp (want RFC3339): %w", err)
			}
			sent, err = db.ListSince(context.Background(), since)
			if err != nil {
				return err
			}
		} else {
			limit, _ := cmd.Flags().GetInt("limit")
			sent, err = db.ListRecent(context.Background(), limit)
			if err != nil {
				return err
			}
		}

		for _, n := range sent {
			ts := n.OccurredAt.Format("2006-01-02 15:04:05")
			line := fmt.Sprintf("%s  %-21s  %s", ts, n.Kind, n.CompID)
			if n.Detail != "" {
				line += "  " + n.Detail
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("state-dir", "", "Directory holding the notification log (default: watch.state_dir, then ~/.config/compwatch)")
	historyCmd.Flags().Int("limit", 50, "Number of recent notifications to show")
	historyCmd.Flags().String("since", "", "Only show notifications since this RFC3339 timestamp")
}
