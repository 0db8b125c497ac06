package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/go-privmeter/pkg/config"
	"github.com/halcyonlabs/go-privmeter/pkg/engine"
	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recorded privacy scores, newest first",
	RunE:  runHistory,
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Compare the latest score against the recent average",
	RunE:  runTrend,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file",
	RunE:  runInitConfig,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of records to print")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, closeStore, err := openHistoryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Read-only view: no providers attached, only the stored records.
	agg := engine.New(engine.ProviderSet{}, store)
	records, err := agg.History(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no score records yet")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  %3d (%s)  %s\n",
			r.Timestamp.Format(time.RFC3339), r.Overall, r.Grade(), summarize(r))
	}
	return nil
}

func runTrend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, closeStore, err := openHistoryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agg := engine.New(engine.ProviderSet{}, store)
	report, err := agg.Trend()
	if err != nil {
		return err
	}

	fmt.Printf("Direction:        %s\n", report.Direction)
	fmt.Printf("Latest score:     %d\n", report.LatestScore)
	if report.SampleSize > 0 {
		fmt.Printf("Previous average: %.1f (over %d records)\n", report.PreviousAverage, report.SampleSize)
		fmt.Printf("Delta:            %+.1f\n", report.Delta)
	} else {
		fmt.Println("Not enough history for a comparison yet.")
	}
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("config file already exists: %s", cfgPath)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(cfgPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", cfgPath)
	return nil
}

// summarize flattens a record's recommendations for single-line output.
func summarize(r *models.ScoreRecord) string {
	if len(r.Recommendations) == 0 {
		return "no recommendations"
	}
	return strings.Join(r.Recommendations, "; ")
}
