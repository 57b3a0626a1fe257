package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/slidenotes/internal/app"
	"github.com/dgallion1/slidenotes/internal/export"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "process <deck>",
		Short: "Generate study notes for a .pptx, .pdf, .docx, .md or .txt deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if format == "" {
				format = export.FormatJSON
				if out == "" && isTerminal(cmd.OutOrStdout()) {
					format = formatTable
				}
			}
			if !export.ValidFormat(format) && format != formatTable {
				return fmt.Errorf("unsupported format %q (want json, md, html or table)", format)
			}

			log := ctx.logger()
			if cfg.OfflineLLM() {
				log.Warn("OPENAI_API_KEY not set, notes will use the offline fallback")
			}
			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Pipeline.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			if err := writeNotes(w, format, cfg.Locale, resp); err != nil {
				closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d topics to %s (document %s)\n", len(resp.Topics), out, resp.DocumentID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, md, html or table (default table on a terminal, json otherwise)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write output to a file instead of stdout")
	return cmd
}
