package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/client"
)

func newMetricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "metric",
		Aliases: []string{"metrics"},
		Short:   "Record and inspect node metrics",
	}
	cmd.AddCommand(metricRecordCmd())
	cmd.AddCommand(metricListCmd())
	cmd.AddCommand(metricRatioCmd())
	cmd.AddCommand(metricDeleteCmd())
	return cmd
}

func metricRecordCmd() *cobra.Command {
	var (
		category string
		at       string
	)
	cmd := &cobra.Command{
		Use:   "record <funnel-id> <node-id> <value>",
		Short: "Record a metric value on a node",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			var value float64
			if _, err := fmt.Sscanf(args[2], "%g", &value); err != nil {
				fatal("parse value", err)
			}
			req := &client.CreateMetricRequest{Category: client.MetricCategory(category), Value: value}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					fatal("parse --at", err)
				}
				req.RecordedAt = &t
			}
			m, err := apiClient.Metrics.Record(context.Background(), args[0], args[1], req)
			if err != nil {
				fatal("record metric", err)
			}
			output(m, m.ID.String())
		},
	}
	cmd.Flags().StringVar(&category, "category", "unique_visitors",
		"unique_visitors|clicks|captured_leads|opportunities|closed_sales|post_sale")
	cmd.Flags().StringVar(&at, "at", "", "Recording time (RFC 3339), default now")
	return cmd
}

func metricListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list <funnel-id> <node-id>",
		Short: "List a node's metrics, newest first",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ms, err := apiClient.Metrics.List(context.Background(), args[0], args[1], limit)
			if err != nil {
				fatal("list metrics", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(ms))
				for _, m := range ms {
					kind := "value"
					if m.IsRatio() {
						kind = "ratio"
					}
					rows = append(rows, []string{m.ID.String(), string(m.Category), fmt.Sprintf("%.2f", m.Value), kind, timestamp(m.RecordedAt)})
				}
				formatTable([]string{"ID", "CATEGORY", "VALUE", "KIND", "RECORDED"}, rows)
				return
			}
			output(ms, "")
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	return cmd
}

func metricRatioCmd() *cobra.Command {
	var numCat, denCat, category string
	cmd := &cobra.Command{
		Use:   "ratio <funnel-id> <numerator-node> <denominator-node>",
		Short: "Store numerator/denominator*100 on the numerator node",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			m, err := apiClient.Metrics.Ratio(context.Background(), args[0], &client.RatioRequest{
				NumeratorNodeID:     args[1],
				DenominatorNodeID:   args[2],
				NumeratorCategory:   client.MetricCategory(numCat),
				DenominatorCategory: client.MetricCategory(denCat),
				Category:            client.MetricCategory(category),
			})
			if err != nil {
				fatal("calculate ratio", err)
			}
			output(m, fmt.Sprintf("%.2f", m.Value))
		},
	}
	cmd.Flags().StringVar(&category, "category", "captured_leads", "Category to store the ratio under")
	cmd.Flags().StringVar(&numCat, "numerator-category", "", "Category read from the numerator node (default: latest of any category)")
	cmd.Flags().StringVar(&denCat, "denominator-category", "", "Category read from the denominator node (default: latest of any category)")
	return cmd
}

func metricDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <metric-id>",
		Short: "Delete a metric",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Metrics.Delete(context.Background(), args[0]); err != nil {
				fatal("delete metric", err)
			}
			fmt.Println("deleted")
		},
	}
}
