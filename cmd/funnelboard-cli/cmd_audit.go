package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/client"
)

func newAuditCmd() *cobra.Command {
	var (
		entityType, entityID, funnelID, action, since string
		limit                                         int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
		Run: func(cmd *cobra.Command, args []string) {
			opts := &client.AuditQueryOptions{
				EntityType: entityType,
				EntityID:   entityID,
				FunnelID:   funnelID,
				Action:     action,
				Limit:      limit,
			}
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					fatal("parse --since", err)
				}
				t := time.Now().Add(-d)
				opts.Since = &t
			}
			page, err := apiClient.Audit.Query(context.Background(), opts)
			if err != nil {
				fatal("audit query", err)
			}
			printAudit(page.Data)
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "Filter by entity type (funnel, share, metric)")
	cmd.Flags().StringVar(&entityID, "entity", "", "Filter by entity ID")
	cmd.Flags().StringVar(&funnelID, "funnel", "", "Filter by funnel ID")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action, e.g. funnel.save")
	cmd.Flags().StringVar(&since, "since", "", "Only entries newer than this duration, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")

	cmd.AddCommand(auditActivityCmd(), auditPurgeCmd())
	return cmd
}

func auditActivityCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity <funnel-id>",
		Short: "Show everything recorded against one funnel",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			page, err := apiClient.Audit.FunnelActivity(context.Background(), args[0], limit)
			if err != nil {
				fatal("funnel activity", err)
			}
			printAudit(page.Data)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	return cmd
}

func printAudit(entries []client.AuditEntry) {
	if flagFmt == "table" {
		headers := []string{"ID", "ACTION", "ENTITY_TYPE", "ENTITY_ID", "FUNNEL_ID", "CREATED_AT"}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.Action, e.EntityType, e.EntityID, e.FunnelID, timestamp(e.CreatedAt)})
		}
		formatTable(headers, rows)
		return
	}
	output(entries, "")
}

func auditPurgeCmd() *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge old audit entries",
		Run: func(cmd *cobra.Command, args []string) {
			res, err := apiClient.Audit.Purge(context.Background(), retentionDays)
			if err != nil {
				fatal("audit purge", err)
			}
			output(res, fmt.Sprintf("%d", res.Deleted))
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Delete entries older than N days (0 uses the server default)")
	return cmd
}
