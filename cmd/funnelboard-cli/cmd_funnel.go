package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/client"
)

func newFunnelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "funnel",
		Aliases: []string{"funnels"},
		Short:   "Manage funnels",
	}
	cmd.AddCommand(funnelListCmd())
	cmd.AddCommand(funnelGetCmd())
	cmd.AddCommand(funnelCreateCmd())
	cmd.AddCommand(funnelRenameCmd())
	cmd.AddCommand(funnelDeleteCmd())
	cmd.AddCommand(funnelCloneCmd())
	cmd.AddCommand(funnelCanvasCmd())
	cmd.AddCommand(funnelSaveCmd())
	return cmd
}

func funnelListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List funnels, most recently updated first",
		Run: func(cmd *cobra.Command, args []string) {
			if limit < 0 || offset < 0 {
				fmt.Fprintf(os.Stderr, "Error: --limit and --offset must be non-negative\n")
				os.Exit(1)
			}
			funnels, hasMore, err := apiClient.Funnels.List(context.Background(), &client.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				fatal("list funnels", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(funnels))
				for _, f := range funnels {
					rows = append(rows, []string{
						f.ID.String(), truncate(f.Name, 40), strconv.Itoa(f.NodeCount),
						strconv.FormatInt(f.Version, 10), timestamp(f.UpdatedAt),
					})
				}
				formatTable([]string{"ID", "NAME", "NODES", "VERSION", "UPDATED"}, rows)
				if hasMore {
					fmt.Fprintln(os.Stderr, "(more results, use --offset)")
				}
				return
			}
			output(funnels, "")
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many results")
	return cmd
}

func funnelGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a funnel with its canvas",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := apiClient.Funnels.Get(context.Background(), args[0])
			if err != nil {
				fatal("get funnel", err)
			}
			output(f, f.ID.String())
		},
	}
}

func funnelCreateCmd() *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a funnel, optionally from a template",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := apiClient.Funnels.Create(context.Background(), &client.CreateFunnelRequest{
				Name:     args[0],
				Template: template,
			})
			if err != nil {
				fatal("create funnel", err)
			}
			output(f, f.ID.String())
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Start from a built-in template (see: funnelboard template list)")
	return cmd
}

func funnelRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a funnel",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := apiClient.Funnels.Rename(context.Background(), args[0], args[1])
			if err != nil {
				fatal("rename funnel", err)
			}
			output(f, f.ID.String())
		},
	}
}

func funnelDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a funnel with its share links and metrics",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Funnels.Delete(context.Background(), args[0]); err != nil {
				fatal("delete funnel", err)
			}
			fmt.Println("deleted")
		},
	}
}

func funnelCloneCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "clone <id>",
		Short: "Copy a funnel",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			f, err := apiClient.Funnels.Clone(context.Background(), args[0], name)
			if err != nil {
				fatal("clone funnel", err)
			}
			output(f, f.ID.String())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name for the copy")
	return cmd
}

func funnelCanvasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canvas <id>",
		Short: "Print a funnel's canvas and version",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doc, err := apiClient.Funnels.LoadCanvas(context.Background(), args[0])
			if err != nil {
				fatal("load canvas", err)
			}
			output(doc, strconv.FormatInt(doc.Version, 10))
		},
	}
}

func funnelSaveCmd() *cobra.Command {
	var (
		file            string
		expectedVersion int64
	)
	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Replace a funnel's canvas from a JSON file",
		Long: `Replace a funnel's canvas with canvas_data read from a JSON file ("-" for stdin).
With --expected-version the save fails if the funnel changed since that version.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := readInput(file)
			if err != nil {
				fatal("read canvas", err)
			}

			req := &client.SaveCanvasRequest{}
			if err := json.Unmarshal(data, &req.CanvasData); err != nil {
				fatal("parse canvas", err)
			}
			if cmd.Flags().Changed("expected-version") {
				req.ExpectedVersion = &expectedVersion
			}

			f, err := apiClient.Funnels.SaveCanvas(context.Background(), args[0], req)
			if client.IsConflict(err) {
				fatal("save canvas", fmt.Errorf("funnel changed since version %d, reload and retry: %w", expectedVersion, err))
			}
			if err != nil {
				fatal("save canvas", err)
			}
			output(f, strconv.FormatInt(f.Version, 10))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Canvas JSON file, - for stdin")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "Fail if the stored version differs")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return readAllLimited(os.Stdin)
	}
	return os.ReadFile(path)
}
