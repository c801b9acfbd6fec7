package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/soilph/config"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// app はサブコマンドが共有するフラグと読み込んだ設定
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string
	dataPath  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "soilph",
		Short:         "Soil pH multiple regression analysis",
		Long:          `soilph cleans a soil survey table, fits OLS regression models of soil pH, tests the model assumptions and writes tables, figures and a PDF report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is ./"+config.DefaultFileName+")")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	f.StringVar(&a.logFormat, "log-format", "", "log format: json or console (overrides config)")
	f.StringVar(&a.dataPath, "data", "", "input CSV or Excel file (overrides config)")

	root.AddCommand(
		newAnalyzeCmd(a),
		newInspectCmd(a),
		newFitCmd(a),
		newPDFCmd(a),
		newConfigCmd(a),
	)
	return root
}

// load は設定を読み、フラグで上書きしてからロガーを構成する
func (a *app) load(cmd *cobra.Command) error {
	c, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = a.logFormat
	}
	if flags.Changed("data") {
		c.Data.Path = a.dataPath
	}
	if err := c.Validate(); err != nil {
		return err
	}
	log.SetupLoggerTo(cmd.ErrOrStderr(), c.Log.Level, c.Log.Format)
	a.cfg = c
	return nil
}
