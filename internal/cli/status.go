package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/recap/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running recap instance",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("http://localhost:%d/health/detailed", cfg.Health.Port)
	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to reach health endpoint, is recap running?", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report health.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode health report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("System: %s\n\n", report.SystemStatus)

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tDETAIL")
	for _, name := range names {
		c := report.Components[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Status, c.Detail)
	}
	_ = w.Flush()

	if len(report.Breakers) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "BREAKER\tSTATE\tFAILS")
		for _, b := range report.Breakers {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", b.Dependency, b.State, b.ConsecutiveFails)
		}
		_ = w.Flush()
	}

	fmt.Printf("\nSessions: %d active, %d messages\n",
		report.Sessions.ActiveSessions, report.Sessions.TotalMessages)
}
