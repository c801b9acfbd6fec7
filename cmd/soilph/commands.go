package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/soilph/config"
	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/document"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/pipeline"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/preprocessing"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var outDir string
	var noPDF bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis and write tables, figures and the PDF report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.cfg.Output.Dir = outDir
			}
			if noPDF {
				a.cfg.PDF.Enabled = false
			}
			res, err := pipeline.Run(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.ResultsText)
			fmt.Fprintf(out, "\nRun %s wrote:\n", res.RunID)
			for _, p := range res.Exports {
				fmt.Fprintf(out, "  %s\n", p)
			}
			for _, f := range res.Figures {
				fmt.Fprintf(out, "  %s\n", f.Path)
			}
			fmt.Fprintf(out, "  %s\n  %s\n", res.WeightsPath, res.MarkdownPath)
			if res.PDFPath != "" {
				fmt.Fprintf(out, "  %s\n", res.PDFPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().BoolVar(&noPDF, "no-pdf", false, "skip the PDF report")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Load and validate the dataset and show the cleaning report",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := pipeline.Inspect(a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newFitCmd(a *app) *cobra.Command {
	var formula string
	var confidence float64
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one regression model and print the model report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if formula == "" {
				formula = a.cfg.Models[0].Formula
			}
			ds, err := dataset.Load(a.cfg.Data.Path, dataset.LoadOptions{Sheet: a.cfg.Data.Sheet})
			if err != nil {
				return err
			}
			cleaned, _, err := preprocessing.HandleMissingValues(ds, a.cfg.Schema())
			if err != nil {
				return err
			}
			m, err := linear.Fit(cleaned, formula, linear.WithConfidenceLevel(confidence))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), m.Report())
			return nil
		},
	}
	cmd.Flags().StringVarP(&formula, "formula", "f", "", `model formula, e.g. "pH_reading ~ fertilizer_kg_ha + C(Crop)" (default: first configured model)`)
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "confidence level for coefficient intervals")
	return cmd
}

func newPDFCmd(a *app) *cobra.Command {
	var output, title, subtitle, author string
	cmd := &cobra.Command{
		Use:   "pdf <markdown>",
		Short: "Render a markdown report as a PDF document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			raw, err := os.ReadFile(in)
			if err != nil {
				return errors.NewInputError("pdf", in, "cannot read markdown", err)
			}
			if output == "" {
				output = strings.TrimSuffix(in, filepath.Ext(in)) + ".pdf"
			}
			opts := document.Options{
				Title:    a.cfg.PDF.Title,
				Subtitle: a.cfg.PDF.Subtitle,
				Author:   a.cfg.PDF.Author,
				Abstract: a.cfg.PDF.Abstract,
				Keywords: a.cfg.PDF.Keywords,
				Metadata: []document.Field{{Label: "Source", Value: filepath.Base(in)}},
			}
			if title != "" {
				opts.Title = title
			}
			if subtitle != "" {
				opts.Subtitle = subtitle
			}
			if author != "" {
				opts.Author = author
			}
			if err := document.WriteFile(output, document.Parse(string(raw)), opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PDF written: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF path (default: markdown path with .pdf)")
	cmd.Flags().StringVar(&title, "title", "", "document title (overrides config)")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "document subtitle (overrides config)")
	cmd.Flags().StringVar(&author, "author", "", "document author (overrides config)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the soilph configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(a.cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
