package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/slidenotes/internal/export"
	"github.com/dgallion1/slidenotes/internal/slides"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export <document-id>",
		Short: "Render cached notes without reprocessing the deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !export.ValidFormat(format) {
				return fmt.Errorf("unsupported format %q (want md, html or json)", format)
			}
			cache, cfg, err := ctx.cache()
			if err != nil {
				return err
			}
			notes, ok := cache.LoadKey(args[0])
			if !ok {
				return fmt.Errorf("no cached notes for %s (see `slidenotes cache list`)", args[0])
			}

			w, closeOut, err := openOutput(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			if err := writeNotes(w, format, cfg.Locale, slides.NewProcessResponse(args[0], notes)); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "Output format: md, html or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write output to a file instead of stdout")
	return cmd
}
