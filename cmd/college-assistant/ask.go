package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joelkehle/college-assistant/internal/collegesearch"
	"github.com/joelkehle/college-assistant/internal/pdfreport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatHTML     = "html"
	formatPDF      = "pdf"
)

func newAskCmd(a *app) *cobra.Command {
	var format, output, chromePath, paper string
	cmd := &cobra.Command{
		Use:   "ask [query...]",
		Short: "Run one query through the pipeline and print the report",
		Example: `  college-assistant ask "engineering colleges in MN"
  college-assistant ask --format json "Is Carleton College a good fit for physics?"
  college-assistant ask --format pdf -o report.pdf "liberal arts colleges in Vermont"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatMarkdown, formatJSON, formatHTML, formatPDF:
			default:
				return fmt.Errorf("unknown --format %q (want markdown, json, html or pdf)", format)
			}
			layout, err := paperLayout(paper)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			shutdown := a.startTelemetry(ctx)
			defer func() { _ = shutdown(ctx) }()

			pipeline, cleanup, err := a.buildPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			query := strings.Join(args, " ")
			result, err := pipeline.RunWithProgress(ctx, collegesearch.Request{Query: query}, func(stage, message string) {
				a.log.Debug("stage_start", zap.String("stage", stage), zap.String("message", message))
			})
			if errors.Is(err, collegesearch.ErrRejected) {
				fmt.Fprintln(cmd.OutOrStdout(), collegesearch.RejectionMessage)
				return nil
			}
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := writeResult(ctx, out, format, pdfreport.NewRenderer(chromePath).WithLayout(layout), result); err != nil {
				return err
			}
			if output != "" {
				a.log.Info("report_written", zap.String("path", output), zap.String("format", format))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatMarkdown, "output format: markdown, json, html or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&chromePath, "chrome", "", "chromium binary for --format pdf (default: autodetect)")
	cmd.Flags().StringVar(&paper, "paper", "a4", "paper size for --format pdf: a4 or letter")
	return cmd
}

func paperLayout(name string) (pdfreport.Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "a4":
		return pdfreport.A4, nil
	case "letter":
		return pdfreport.Letter, nil
	default:
		return pdfreport.Layout{}, fmt.Errorf("unknown --paper %q (want a4 or letter)", name)
	}
}

func writeResult(ctx context.Context, out io.Writer, format string, pdf *pdfreport.Renderer, result collegesearch.PipelineResult) error {
	switch format {
	case formatPDF:
		doc, err := pdf.Render(ctx, result)
		if err != nil {
			return err
		}
		_, err = out.Write(doc)
		return err
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(collegesearch.BuildResponse(result))
	case formatHTML:
		html, err := pdfreport.BuildDocument(result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, html)
		return err
	default:
		_, err := fmt.Fprint(out, collegesearch.BuildReportMarkdown(result))
		return err
	}
}
