package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached notes",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := ctx.cache()
			if err != nil {
				return err
			}
			entries, err := cache.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Cached notes: none")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Key,
					strconv.Itoa(e.Topics),
					humanBytes(e.Size),
					e.Modified.Local().Format(stampLayout),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Document", "Topics", "Size", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := ctx.cache()
			if err != nil {
				return err
			}
			n, err := cache.Clear()
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cached notes removed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached documents\n", n)
			return nil
		},
	}
}
