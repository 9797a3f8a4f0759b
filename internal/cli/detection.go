package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDetectionConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and tune detection parameters",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current detection config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := apiClient.Detection().GetConfig(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get detection config: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(cfg)
			}

			t := NewTable("PARAMETER", "VALUE")
			t.AddRow("max_spend_cents_per_cycle", strconv.FormatInt(cfg.MaxSpendCentsPerCycle, 10))
			t.AddRow("max_requests_per_day", strconv.FormatInt(cfg.MaxRequestsPerDay, 10))
			t.AddRow("max_tokens_per_day", strconv.FormatInt(cfg.MaxTokensPerDay, 10))
			t.AddRow("zscore_multiplier", strconv.FormatFloat(cfg.ZScoreMultiplier, 'f', -1, 64))
			t.AddRow("zscore_lookback_days", strconv.Itoa(cfg.ZScoreLookbackDays))
			t.AddRow("spike_multiplier", strconv.FormatFloat(cfg.SpikeMultiplier, 'f', -1, 64))
			t.AddRow("spike_lookback_days", strconv.Itoa(cfg.SpikeLookbackDays))
			t.AddRow("drift_days_above_p75", strconv.Itoa(cfg.DriftDaysAboveP75))
			t.Render()
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var maxSpend, maxRequests, maxTokens int64
	var zMultiplier, spikeMultiplier float64
	var zLookback, spikeLookback, driftDays int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update detection parameters",
		Long: `Update detection parameters. Flags left unset keep their current
server-side value; the full config is fetched, patched and replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := apiClient.Detection().GetConfig(ctx)
			if err != nil {
				return fmt.Errorf("failed to get detection config: %w", err)
			}

			if cmd.Flags().Changed("max-spend-cents") {
				cfg.MaxSpendCentsPerCycle = maxSpend
			}
			if cmd.Flags().Changed("max-requests") {
				cfg.MaxRequestsPerDay = maxRequests
			}
			if cmd.Flags().Changed("max-tokens") {
				cfg.MaxTokensPerDay = maxTokens
			}
			if cmd.Flags().Changed("zscore-multiplier") {
				cfg.ZScoreMultiplier = zMultiplier
			}
			if cmd.Flags().Changed("zscore-lookback") {
				cfg.ZScoreLookbackDays = zLookback
			}
			if cmd.Flags().Changed("spike-multiplier") {
				cfg.SpikeMultiplier = spikeMultiplier
			}
			if cmd.Flags().Changed("spike-lookback") {
				cfg.SpikeLookbackDays = spikeLookback
			}
			if cmd.Flags().Changed("drift-days") {
				cfg.DriftDaysAboveP75 = driftDays
			}

			if err := apiClient.Detection().UpdateConfig(ctx, cfg); err != nil {
				return fmt.Errorf("failed to update detection config: %w", err)
			}

			fmt.Println("Detection config updated")
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxSpend, "max-spend-cents", 0, "max spend in cents per billing cycle (0 disables)")
	cmd.Flags().Int64Var(&maxRequests, "max-requests", 0, "max requests per day (0 disables)")
	cmd.Flags().Int64Var(&maxTokens, "max-tokens", 0, "max tokens per day (0 disables)")
	cmd.Flags().Float64Var(&zMultiplier, "zscore-multiplier", 0, "z-score threshold multiplier")
	cmd.Flags().IntVar(&zLookback, "zscore-lookback", 0, "z-score lookback window in days")
	cmd.Flags().Float64Var(&spikeMultiplier, "spike-multiplier", 0, "spike detection multiplier")
	cmd.Flags().IntVar(&spikeLookback, "spike-lookback", 0, "spike baseline window in days")
	cmd.Flags().IntVar(&driftDays, "drift-days", 0, "days above P75 to flag drift")

	return cmd
}
