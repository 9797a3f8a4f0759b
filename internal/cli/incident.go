package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/usagesentry/usagesentry/pkg/client"
)

func newIncidentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incident",
		Short: "Manage incidents",
	}

	cmd.AddCommand(newIncidentListCmd())
	cmd.AddCommand(newIncidentGetCmd())
	cmd.AddCommand(newIncidentSummaryCmd())
	cmd.AddCommand(newIncidentAckCmd())
	cmd.AddCommand(newIncidentResolveCmd())

	return cmd
}

func newIncidentListCmd() *cobra.Command {
	var subjectID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			incidents, err := apiClient.Incidents().List(ctx, &client.IncidentListOptions{
				SubjectID: subjectID,
				Status:    status,
			})
			if err != nil {
				return fmt.Errorf("failed to list incidents: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(incidents)
			}

			t := NewTable("ID", "ANOMALY", "SUBJECT", "STATUS", "MTTR (MIN)")
			for _, inc := range incidents {
				mttr := "-"
				if inc.MTTRMinutes != nil {
					mttr = strconv.FormatFloat(*inc.MTTRMinutes, 'f', 1, 64)
				}
				subject := inc.SubjectID
				if inc.SubjectKind == "team" {
					subject = "team"
				}
				t.AddRow(
					strconv.FormatInt(inc.ID, 10),
					strconv.FormatInt(inc.AnomalyID, 10),
					truncate(subject, 24),
					formatStatus(inc.Status),
					mttr,
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&subjectID, "subject", "", "filter by subject ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")

	return cmd
}

func newIncidentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid incident ID: %s", args[0])
			}

			inc, err := apiClient.Incidents().Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get incident: %w", err)
			}

			return printOutput(inc)
		},
	}
}

func newIncidentSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show incident counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := apiClient.Incidents().Summary(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get incident summary: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(counts)
			}

			t := NewTable("STATUS", "COUNT")
			for _, status := range []string{"open", "alerted", "acknowledged", "resolved"} {
				t.AddRow(formatStatus(status), strconv.Itoa(counts[status]))
			}
			t.Render()
			return nil
		},
	}
}

func newIncidentAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid incident ID: %s", args[0])
			}

			if err := apiClient.Incidents().Acknowledge(context.Background(), id); err != nil {
				return fmt.Errorf("failed to acknowledge incident: %w", err)
			}

			fmt.Printf("Incident %d acknowledged\n", id)
			return nil
		},
	}
}

func newIncidentResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid incident ID: %s", args[0])
			}

			if err := apiClient.Incidents().Resolve(context.Background(), id); err != nil {
				return fmt.Errorf("failed to resolve incident: %w", err)
			}

			fmt.Printf("Incident %d resolved\n", id)
			return nil
		},
	}
}
