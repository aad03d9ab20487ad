// The pyrus command translates one parsed Python module into Rust source.
// It reads a module AST encoded as JSON, runs the translation pipeline, and
// writes the emitted Rust text plus the list of crates the output requires.
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pyrus/ast"
	"pyrus/bridge"
	"pyrus/codegen"
	"pyrus/config"
	"pyrus/optimize"
	"pyrus/report"
)

var (
	outputPath string
	configPath string
	logLevel   string
	noOptimize bool
)

var rootCmd = &cobra.Command{
	Use:   "pyrus <module.json>",
	Short: "Translate a parsed Python module to Rust source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		translate(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path for the emitted Rust source")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a pyrus.toml configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "verbose", "log level: silent, error, warn, or verbose")
	rootCmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "skip the optimizer passes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func translate(inputPath string) {
	report.InitReporter(parseLogLevel(logLevel))

	cfg := loadConfig()
	if noOptimize {
		cfg.Optimize = false
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".rs"
	}

	report.ReportTranslationHeader(inputPath, cfg.Optimize)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		report.ReportFatal("unable to read input at `%s`: %s", inputPath, err.Error())
	}

	astMod, err := ast.DecodeModule(data)
	if err != nil {
		report.ReportFatal("error decoding module AST: %s", err.Error())
	}

	mod, convErrs := bridge.Convert(astMod)
	for _, convErr := range convErrs.Errors() {
		report.ReportError(inputPath, "", convErr)
	}

	if mod == nil {
		report.ReportFatal("module conversion produced no output")
	}

	if cfg.Optimize {
		optimize.New(cfg.Passes).OptimizeModule(mod)
	}

	out, genErrs := codegen.Generate(mod, cfg.Mapper(), codegen.Options{Fallible: cfg.Fallible})
	for _, genErr := range genErrs.Errors() {
		report.ReportError(inputPath, "", genErr)
	}

	if err := os.WriteFile(outputPath, []byte(out.Source), 0o644); err != nil {
		report.ReportFatal("unable to write output at `%s`: %s", outputPath, err.Error())
	}

	if len(out.Crates) > 0 {
		depsPath := outputPath + ".deps"
		listing := strings.Join(out.Crates, "\n") + "\n"

		if err := os.WriteFile(depsPath, []byte(listing), 0o644); err != nil {
			report.ReportFatal("unable to write dependency listing at `%s`: %s", depsPath, err.Error())
		}
	}

	report.ReportTranslationFinished(outputPath, out.Emitted, out.Failed)

	if report.AnyErrors() {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file when one was given, falling back to
// the defaults otherwise.
func loadConfig() *config.Config {
	if configPath == "" {
		return config.Default()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		report.ReportFatal("%s", err.Error())
	}

	return cfg
}

// parseLogLevel maps the flag text to a reporter log level.
func parseLogLevel(text string) int {
	switch text {
	case "silent":
		return report.LogLevelSilent
	case "error":
		return report.LogLevelError
	case "warn":
		return report.LogLevelWarn
	default:
		return report.LogLevelVerbose
	}
}
