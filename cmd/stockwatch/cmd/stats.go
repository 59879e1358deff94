package cmd

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	domain "stockwatch/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show monitoring statistics from a running server",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	var stats domain.Stats

	resp, err := resty.New().R().
		SetContext(cmd.Context()).
		SetResult(&stats).
		Get(viper.GetString("api_url") + "/api/v1/stats")
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("stats request failed: %s", resp.Status())
	}

	fmt.Printf("Active products:  %d\n", stats.TotalActiveProducts)
	fmt.Printf("New today:        %d\n", stats.NewToday)
	fmt.Printf("Restocks today:   %d\n", stats.RestocksToday)
	fmt.Printf("Total alerts:     %d\n", stats.TotalAlertsSent)
	if stats.LastCheckAt != nil {
		fmt.Printf("Last check:       %s\n", stats.LastCheckAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Last check:       never")
	}
	return nil
}
