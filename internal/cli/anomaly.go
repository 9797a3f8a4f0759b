package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/usagesentry/usagesentry/pkg/client"
)

func newAnomalyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomaly",
		Short: "Inspect detected anomalies",
	}

	cmd.AddCommand(newAnomalyListCmd())
	cmd.AddCommand(newAnomalyGetCmd())
	cmd.AddCommand(newAnomalySummaryCmd())

	return cmd
}

func newAnomalyListCmd() *cobra.Command {
	var subjectID, anomalyType, metric, severity string
	var openOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			opts := &client.AnomalyListOptions{
				SubjectID: subjectID,
				Type:      anomalyType,
				Metric:    metric,
				Severity:  severity,
			}
			if openOnly {
				opts.Open = &openOnly
			}

			anomalies, err := apiClient.Anomalies().List(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list anomalies: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(anomalies)
			}

			t := NewTable("ID", "SUBJECT", "TYPE", "METRIC", "SEVERITY", "MESSAGE")
			for _, a := range anomalies {
				subject := a.SubjectID
				if a.SubjectKind == "team" {
					subject = "team"
				}
				t.AddRow(
					strconv.FormatInt(a.ID, 10),
					truncate(subject, 24),
					a.Type,
					a.Metric,
					formatSeverity(a.Severity),
					truncate(a.Message, 60),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&subjectID, "subject", "", "filter by subject ID")
	cmd.Flags().StringVar(&anomalyType, "type", "", "filter by detector type")
	cmd.Flags().StringVar(&metric, "metric", "", "filter by metric")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().BoolVar(&openOnly, "open", false, "only open anomalies")

	return cmd
}

func newAnomalyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one anomaly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid anomaly ID: %s", args[0])
			}

			a, err := apiClient.Anomalies().Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get anomaly: %w", err)
			}

			return printOutput(a)
		},
	}
}

func newAnomalySummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show open anomaly counts by severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := apiClient.Anomalies().Summary(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get anomaly summary: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(counts)
			}

			t := NewTable("SEVERITY", "OPEN")
			for _, sev := range []string{"warning", "critical"} {
				t.AddRow(formatSeverity(sev), strconv.Itoa(counts[sev]))
			}
			t.Render()
			return nil
		},
	}
}
