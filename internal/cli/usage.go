package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect usage data",
	}

	cmd.AddCommand(newUsageSummaryCmd())
	cmd.AddCommand(newUsageSyncCmd())

	return cmd
}

func newUsageSummaryCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-member usage totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := apiClient.Usage().Summary(context.Background(), days)
			if err != nil {
				return fmt.Errorf("failed to get usage summary: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(summary)
			}

			t := NewTable("MEMBER", "REQUESTS", "TOKENS", "SPEND (USD)")
			for _, m := range summary.Members {
				t.AddRow(
					truncate(m.MemberID, 32),
					strconv.FormatInt(m.Requests, 10),
					strconv.FormatInt(m.Tokens, 10),
					fmt.Sprintf("%.2f", float64(m.SpendCents)/100),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "window size in days")

	return cmd
}

func newUsageSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Trigger an upstream provider sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Usage().Sync(context.Background()); err != nil {
				return fmt.Errorf("provider sync failed: %w", err)
			}

			fmt.Println("Provider sync completed")
			return nil
		},
	}
}
