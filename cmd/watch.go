package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/tomasfh/compwatch/internal/utils"
	"github.com/tomasfh/compwatch/pkg/notify"
	"github.com/tomasfh/compwatch/pkg/statestore"
	"github.com/tomasfh/compwatch/pkg/storage"
	"github.com/tomasfh/compwatch/pkg/watch"
	"github.com/tomasfh/compwatch/pkg/wca"
)

// watchCmd implements: compwatch watch
//
// One full fetch-compare-notify cycle. Exit status is zero for any completed
// cycle, with or without notifications; only setup failures (state dir,
// lock, --require-channel) are fatal.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run one fetch-compare-notify cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'compwatch watch --help'", args[0])
		}

		timeout := time.Duration(viper.GetInt("watch.timeout_sec")) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}

		// Channels, toggled by credential presence.
		var channels []notify.Channel
		if webhook := viper.GetString("discord.webhook_url"); webhook != "" {
			channels = append(channels, notify.NewDiscord(webhook, timeout))
		} else {
			utils.Log.Info("Skipping Discord: webhook URL not found in config.")
		}
		tgToken := viper.GetString("telegram.token")
		tgChat := viper.GetString("telegram.chat_id")
		if tgToken != "" && tgChat != "" {
			channels = append(channels, notify.NewTelegram(tgToken, tgChat, timeout))
		} else {
			utils.Log.Info("Skipping Telegram: token or chat id not found in config.")
		}

		requireChannel, _ := cmd.Flags().GetBool("require-channel")
		if requireChannel && len(channels) == 0 {
			return fmt.Errorf("no notification channel configured; set discord.webhook_url or telegram.token/chat_id")
		}

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

		store, err := statestore.New(stateDir)
		if err != nil {
			return err
		}

		// Serialize against overlapping scheduler invocations.
		lock, err := utils.NewRunLock(stateDir)
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		var audit watch.AuditLog
		db, err := storage.Open(filepath.Join(stateDir, "notifications.sqlite"))
		if err != nil {
			utils.Log.Warnf("Notification log unavailable, continuing without it: %v", err)
		} else {
			defer db.Close()
			audit = db
		}

		quietFirstRun, _ := cmd.Flags().GetBool("quiet-first-run")
		client := wca.NewClient(viper.GetString("wca.base_url"), viper.GetString("wca.country"), timeout)
		cycle := watch.NewCycle(watch.Config{
			Window:            time.Duration(viper.GetInt("watch.window_min")) * time.Minute,
			CapacityThreshold: viper.GetFloat64("watch.capacity_threshold"),
			QuietFirstRun:     quietFirstRun,
			LookupRate:        rate.Limit(2), // be polite to the registrations endpoint
			Log:               utils.Log,
		}, store, client, client, notify.NewDispatcher(channels...), audit)

		runCycle(cmd.Context(), cycle)
		return nil
	},
}

// runCycle contains the cycle so that nothing escaping it can take down the
// scheduler with a non-zero exit: errors and panics are logged, the process
// still completes.
func runCycle(ctx context.Context, cycle *watch.Cycle) {
	defer func() {
		if r := recover(); r != nil {
			utils.Log.Errorf("Cycle aborted by panic: %v", r)
		}
	}()

	result, err := cycle.Run(ctx)
	if err != nil {
		utils.Log.Errorf("Cycle failed: %v", err)
		return
	}
	if result.FetchFailed {
		utils.Log.Warn("No data this cycle; state preserved for the next run.")
		return
	}
	for _, e := range result.Errors {
		utils.Log.Warnf("Non-fatal: %v", e)
	}
	utils.Log.Infof("Cycle complete: %d competitions, %d new, %d registration-upcoming, %d registration-open, %d capacity alerts",
		result.Total, result.New, result.Upcoming, result.Opened, result.CapacityAlerts)
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("state-dir", "", "Directory for state files (default: watch.state_dir, then ~/.config/compwatch)")
	watchCmd.Flags().Bool("quiet-first-run", false, "On an empty state store, record the snapshot without announcing every competition")
	watchCmd.Flags().Bool("require-channel", false, "Fail instead of running notification-less when no channel is configured")
}
