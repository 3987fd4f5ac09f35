package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "share",
		Aliases: []string{"shares"},
		Short:   "Manage share links",
	}
	cmd.AddCommand(shareCreateCmd())
	cmd.AddCommand(shareListCmd())
	cmd.AddCommand(shareRevokeCmd())
	cmd.AddCommand(shareShowCmd())
	cmd.AddCommand(shareCloneCmd())
	return cmd
}

func shareCreateCmd() *cobra.Command {
	var allowDownload bool
	cmd := &cobra.Command{
		Use:   "create <funnel-id>",
		Short: "Create a share link",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			link, err := apiClient.Shares.Create(context.Background(), args[0], allowDownload)
			if err != nil {
				fatal("create share link", err)
			}
			output(link, link.Token)
		},
	}
	cmd.Flags().BoolVar(&allowDownload, "allow-download", false, "Let viewers clone the funnel into their account")
	return cmd
}

func shareListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <funnel-id>",
		Short: "List a funnel's share links",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			links, err := apiClient.Shares.List(context.Background(), args[0])
			if err != nil {
				fatal("list share links", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(links))
				for _, l := range links {
					status := "active"
					if l.RevokedAt != nil {
						status = "revoked"
					}
					rows = append(rows, []string{l.Token, fmt.Sprintf("%t", l.AllowDownload), status, timestamp(l.CreatedAt)})
				}
				formatTable([]string{"TOKEN", "DOWNLOAD", "STATUS", "CREATED"}, rows)
				return
			}
			output(links, "")
		},
	}
}

func shareRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a share link",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Shares.Revoke(context.Background(), args[0]); err != nil {
				fatal("revoke share link", err)
			}
			fmt.Println("revoked")
		},
	}
}

func shareShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <token>",
		Short: "Show the read-only view behind a share link",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			view, err := apiClient.Shares.Resolve(context.Background(), args[0])
			if err != nil {
				fatal("resolve share link", err)
			}
			output(view, view.FunnelID.String())
		},
	}
}

func shareCloneCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "clone <token>",
		Short: "Copy a shared funnel into your account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := apiClient.Shares.Clone(context.Background(), args[0], name)
			if err != nil {
				fatal("clone shared funnel", err)
			}
			output(f, f.ID.String())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name for the copy")
	return cmd
}
