package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/logging"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for the bookmark sync endpoint",
	Long: `Manage API keys accepted by POST /api/bookmarks/sync.

Only a SHA-256 digest of each key is stored. The plain key is printed once,
when it is created. The store is configured with the same BOOKMARKSYNC_*
environment variables as the server.`,
	SilenceUsage: true,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		return withAuth(func(ctx context.Context, auth *service.Auth) error {
			key, record, err := auth.CreateAPIKey(ctx, name)
			if err != nil {
				return err
			}

			fmt.Printf("Created API key %q (id %s)\n", record.Name, record.ID)
			fmt.Printf("Key: %s\n", key)
			fmt.Println("Store it now, it cannot be shown again.")
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuth(func(ctx context.Context, auth *service.Auth) error {
			keys, err := auth.ListAPIKeys(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED")
			for _, k := range keys {
				lastUsed := "never"
				if k.LastUsedAt != nil {
					lastUsed = formatMillis(*k.LastUsedAt)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.ID, k.Name, formatMillis(k.CreatedAt), lastUsed)
			}
			return w.Flush()
		})
	},
}

func withAuth(fn func(ctx context.Context, auth *service.Auth) error) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.NewGormClient(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return fn(ctx, service.NewAuth(db.NewStore(gdb, logger), logger))
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func init() {
	createCmd.Flags().String("name", "", "human readable name of the key, e.g. the browser profile")
	_ = createCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
