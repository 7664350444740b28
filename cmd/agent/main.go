package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/agent"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Push a Chrome profile's bookmarks bar to a bookmark sync server",
	Long: `Read the Bookmarks file of a Chrome profile and send its bookmarks bar
to a bookmark sync server. Other bookmarks and mobile bookmarks are never sent.

Flags can also be set through BOOKMARKSYNC_AGENT_FILE, BOOKMARKSYNC_AGENT_URL
and BOOKMARKSYNC_AGENT_KEY.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer, logger, err := newSyncer()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		resp, err := syncer.SyncFile(ctx)
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		if resp.Stats != nil {
			fmt.Printf("   Folders: %d\n", resp.Stats.Folders)
			fmt.Printf("   Bookmarks: %d\n", resp.Stats.Bookmarks)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync once, then again whenever the Bookmarks file changes",
	Long: `Run a full sync, then watch the Bookmarks file. Each change is sent as
create, change, move and remove events for the nodes that differ from the
last synced state. If the server refuses an event the agent falls back to a
full sync. --full sends a full sync on every change instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer, logger, err := newSyncer()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := syncer.SyncFile(ctx); err != nil {
			logger.Errorw("initial sync", "error", err)
		}

		debounce, _ := cmd.Flags().GetDuration("debounce")
		full, _ := cmd.Flags().GetBool("full")
		logger.Infow("watching bookmarks file", "file", v.GetString("file"), "debounce", debounce, "full", full)
		return syncer.Watch(ctx, debounce, full)
	},
}

func newSyncer() (*agent.Syncer, *zap.SugaredLogger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}
	logger := l.Sugar()

	file := v.GetString("file")
	if file == "" {
		return nil, nil, errors.New("bookmarks file is required")
	}

	client := agent.NewClient(v.GetString("url"), v.GetString("key"), logger)
	return agent.NewSyncer(client, file, logger), logger, nil
}

func init() {
	rootCmd.PersistentFlags().String("file", "", "path to the Chrome profile's Bookmarks file")
	rootCmd.PersistentFlags().String("url", "http://localhost:1323/api/bookmarks", "bookmarks API base URL")
	rootCmd.PersistentFlags().String("key", "", "API key")
	watchCmd.Flags().Duration("debounce", 2*time.Second, "quiet period before a change is synced")
	watchCmd.Flags().Bool("full", false, "send a full sync on every change instead of change events")

	v.SetEnvPrefix("BOOKMARKSYNC_AGENT")
	for _, name := range []string{"file", "url", "key"} {
		_ = v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
		_ = v.BindEnv(name)
	}

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
