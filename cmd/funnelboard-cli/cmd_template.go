package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Built-in funnel templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates usable with funnel create --template",
		Run: func(cmd *cobra.Command, args []string) {
			tpls, err := apiClient.Templates(context.Background())
			if err != nil {
				fatal("list templates", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(tpls))
				for _, t := range tpls {
					rows = append(rows, []string{t.Name, t.Title, strconv.Itoa(t.NodeCount), truncate(t.Description, 50)})
				}
				formatTable([]string{"NAME", "TITLE", "NODES", "DESCRIPTION"}, rows)
				return
			}
			output(tpls, "")
		},
	})
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health", err)
			}
			if flagFmt == "table" {
				formatTable(
					[]string{"CHECK", "VALUE"},
					[][]string{
						{"Status", resp.Status},
						{"Version", resp.Version},
						{"Database", resp.Database},
						{"Share cache", resp.ShareCache},
						{"Sessions", strconv.Itoa(resp.Sessions)},
						{"Viewers", strconv.Itoa(resp.Viewers)},
					},
				)
				return
			}
			output(resp, resp.Status)
		},
	}
}
