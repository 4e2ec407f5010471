package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vietddude/recap/internal/infra/storage/postgres"
)

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete bookmarks and search history older than a cutoff",
	Run:   runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 90, "delete rows older than this many days")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	if pruneDays <= 0 {
		fmt.Println("--days must be positive")
		os.Exit(1)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Println("No database configured, nothing to prune")
		return
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	cutoff := time.Now().AddDate(0, 0, -pruneDays)

	// Both tables go in one transaction so a partial prune never lands.
	var bookmarks, searches int64
	err = db.WithTx(ctx, func(uow *postgres.UnitOfWork) error {
		var err error
		if bookmarks, err = uow.Bookmarks.DeleteOlderThan(ctx, cutoff); err != nil {
			return err
		}
		searches, err = uow.History.DeleteOlderThan(ctx, cutoff)
		return err
	})
	if err != nil {
		slog.Error("Failed to prune", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Pruned %d bookmarks and %d search records older than %s\n",
		bookmarks, searches, cutoff.Format("2006-01-02"))
}
