package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vietddude/recap/internal/infra/storage/postgres"
)

var historyCmd = &cobra.Command{
	Use:   "history [user_id]",
	Short: "Show a user's recent searches and top keywords",
	Args:  cobra.ExactArgs(1),
	Run:   runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	userID := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Println("No database configured")
		os.Exit(1)
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

	history := postgres.NewSearchHistoryRepo(db)

	recent, err := history.RecentByUser(ctx, userID, 20)
	if err != nil {
		slog.Error("Failed to query search history", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "KEYWORD\tRESULTS\tWHEN")
	for _, rec := range recent {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", rec.Keyword, rec.ResultCount, rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()

	top, err := history.TopKeywords(ctx, userID, 10)
	if err != nil {
		slog.Error("Failed to rank keywords", "error", err)
		os.Exit(1)
	}
	if len(top) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "TOP KEYWORD\tCOUNT")
		for _, kw := range top {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", kw.Keyword, kw.Count)
		}
		_ = w.Flush()
	}
}
