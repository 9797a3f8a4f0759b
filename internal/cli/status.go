package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check server connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := apiClient.Health(ctx); err != nil {
				return fmt.Errorf("server not reachable: %w", err)
			}

			fmt.Println("Server is ready")
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Trigger a detection run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			result, err := apiClient.Detection().Run(ctx)
			if err != nil {
				return fmt.Errorf("detection run failed: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(result)
			}

			fmt.Printf("Run %s completed in %dms\n", result.RunID, result.DurationMs)
			fmt.Printf("  new anomalies: %d\n", result.NewAnomalies)
			fmt.Printf("  auto-resolved: %d\n", result.ResolvedCount)
			fmt.Printf("  total open:    %d\n", result.TotalOpen)
			return nil
		},
	}
}
