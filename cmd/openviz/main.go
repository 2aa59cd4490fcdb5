// openviz: legend classification and data-bite aggregation for tabular data.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/openviz/api"
	"github.com/seenimoa/openviz/internal/config"
	"github.com/seenimoa/openviz/internal/databite"
	"github.com/seenimoa/openviz/internal/infra"
	"github.com/seenimoa/openviz/internal/legend"
	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/internal/widget"
	"github.com/seenimoa/openviz/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "openviz",
	Short: "openviz: legends and data bites for tabular data",
	Long: `openviz bins a dataset column into colored legend classes and
computes single-number summaries ("data bites") over a column.
Widget config files (JSON or YAML) describe maps and data bites and
can be rendered in batches.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (trace, debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(biteCmd)
	rootCmd.AddCommand(legendCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(palettesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "openviz %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Bite Command ---

var biteCmd = &cobra.Command{
	Use:   "bite [data file]",
	Short: "Compute a data bite over a column",
	Long: `Compute count, sum, mean, median, min, max, mode or range over the
numeric values of a column, optionally restricted to rows where another
column equals a value. Prints an empty line when the result is undefined.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := widget.LoadData(args[0])
		if err != nil {
			return err
		}

		column, _ := cmd.Flags().GetString("column")
		function, _ := cmd.Flags().GetString("function")
		filterColumn, _ := cmd.Flags().GetString("filter-column")
		filterValue, _ := cmd.Flags().GetString("filter-value")
		prefix, _ := cmd.Flags().GetString("prefix")
		suffix, _ := cmd.Flags().GetString("suffix")

		precision := cfg.DataBite.Precision
		if cmd.Flags().Changed("precision") {
			precision, _ = cmd.Flags().GetInt("precision")
		}

		fn := models.ParseDataFunction(function)
		if !fn.Known() {
			return fmt.Errorf("unknown function %q (want one of %s)", function, functionNames())
		}

		req := models.AggregationRequest{
			Column:       column,
			Function:     fn,
			FilterColumn: filterColumn,
			Prefix:       prefix,
			Suffix:       suffix,
		}
		if filterValue != "" {
			req.FilterValue = parseScalar(filterValue)
		}
		if precision >= 0 {
			req.Precision = &precision
		}

		fmt.Fprintln(cmd.OutOrStdout(), databite.New(logging.Get()).DataBite(ds, req))
		return nil
	},
}

func init() {
	biteCmd.Flags().String("column", "", "column to aggregate")
	biteCmd.Flags().String("function", "count", "count, sum, mean, median, min, max, mode or range")
	biteCmd.Flags().String("filter-column", "", "only use rows where this column ...")
	biteCmd.Flags().String("filter-value", "", "... equals this value (JSON literal or plain string)")
	biteCmd.Flags().Int("precision", -1, "decimal places (default from config; -1 for natural form)")
	biteCmd.Flags().String("prefix", "", "text placed before the result")
	biteCmd.Flags().String("suffix", "", "text placed after the result")
	_ = biteCmd.MarkFlagRequired("column")
}

// --- Legend Command ---

var legendCmd = &cobra.Command{
	Use:   "legend [data file]",
	Short: "Classify a column into legend classes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := widget.LoadData(args[0])
		if err != nil {
			return err
		}

		lcfg, err := legendConfigFromFlags(cmd)
		if err != nil {
			return err
		}

		res, err := newClassifier().Classify(ds, lcfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		withLookup, _ := cmd.Flags().GetBool("lookup")
		if asJSON {
			if !withLookup {
				res.Lookup = nil
			}
			return writeJSON(out, res)
		}

		for _, c := range res.Classes {
			fmt.Fprintf(out, "  %-2d %-8s %s  %s\n", c.Index, c.Kind, c.Color, c.Label())
		}
		if res.Truncated > 0 {
			fmt.Fprintf(out, "  (%d more values not shown)\n", res.Truncated)
		}
		if withLookup {
			fmt.Fprintln(out)
			for _, row := range ds {
				class, ok := res.ClassFor(row)
				label := "-"
				if ok {
					label = fmt.Sprintf("%d", class.Index)
				}
				v, _ := row.Value(lcfg.PrimaryColumn)
				fmt.Fprintf(out, "  %s  %-4s %v\n", legend.Fingerprint(row), label, v)
			}
		}
		return nil
	},
}

func init() {
	legendCmd.Flags().String("column", "", "primary column to classify")
	legendCmd.Flags().String("type", "", "equalnumber, equalinterval or category (default from config)")
	legendCmd.Flags().Int("items", 0, "number of classes, 1-9 (default from config)")
	legendCmd.Flags().StringSlice("special", nil, "values that get their own gray class")
	legendCmd.Flags().Bool("separate-zero", false, "put exact zeros in their own class")
	legendCmd.Flags().StringSlice("order", nil, "category display order")
	legendCmd.Flags().String("palette", "", "palette id (default from config)")
	legendCmd.Flags().Bool("json", false, "print the result as JSON")
	legendCmd.Flags().Bool("lookup", false, "include the row lookup")
	_ = legendCmd.MarkFlagRequired("column")
}

func legendConfigFromFlags(cmd *cobra.Command) (models.LegendConfig, error) {
	column, _ := cmd.Flags().GetString("column")
	typ, _ := cmd.Flags().GetString("type")
	items, _ := cmd.Flags().GetInt("items")
	specials, _ := cmd.Flags().GetStringSlice("special")
	separateZero, _ := cmd.Flags().GetBool("separate-zero")
	order, _ := cmd.Flags().GetStringSlice("order")
	palette, _ := cmd.Flags().GetString("palette")

	if typ == "" {
		typ = cfg.Legend.Type
	}
	lt, err := models.ParseLegendType(typ)
	if err != nil {
		return models.LegendConfig{}, err
	}
	if items == 0 {
		items = cfg.Legend.NumberOfItems
	}
	if palette == "" {
		palette = cfg.Legend.Color
	}

	return models.LegendConfig{
		PrimaryColumn:       column,
		Type:                lt,
		NumberOfItems:       items,
		SpecialClasses:      parseScalars(specials),
		SeparateZero:        separateZero,
		CategoryValuesOrder: parseScalars(order),
		Color:               palette,
	}, nil
}

// --- Render Command ---

var renderCmd = &cobra.Command{
	Use:   "render [widget file]...",
	Short: "Evaluate widget config files",
	Long: `Load map and data-bite widget configs (JSON or YAML) and evaluate them
concurrently. Prints one JSON result per widget, in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		log := logging.Get()

		widgets, err := widget.LoadAll(ctx, args, cfg, cfg.Batch.Concurrency)
		if err != nil {
			return err
		}

		ev := widget.NewEvaluator(newClassifier(), databite.New(log), log)
		results, evalErr := ev.EvaluateAll(ctx, widgets, cfg.Batch.Concurrency)
		if results == nil {
			return evalErr
		}

		out := cmd.OutOrStdout()
		for _, r := range results {
			if err := writeJSON(out, r); err != nil {
				return err
			}
		}

		if evalErr != nil {
			logging.With(log.Info(), logging.Rows(len(results))).Msg("render finished with errors")
			return fmt.Errorf("some widgets failed: %w", evalErr)
		}
		logging.With(log.Info(), logging.Rows(len(results))).Msg("render finished")
		return nil
	},
}

// --- Palettes Command ---

var palettesCmd = &cobra.Command{
	Use:   "palettes",
	Short: "List color palettes",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, id := range legend.PaletteIDs() {
			colors, _ := legend.Palette(id)
			kind := "sequential"
			if legend.IsQualitative(id) {
				kind = "qualitative"
			}
			fmt.Fprintf(out, "  %-20s %-12s %s\n", id, kind, strings.Join(colors, " "))
		}
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show version and effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  openviz status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Palettes:      %d\n", len(legend.PaletteIDs()))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		for _, s := range config.Status(cfg) {
			fmt.Fprintf(out, "    %-26s %-12s (%s, %s)\n", s.Key+":", s.Value, s.Source, s.EnvVar)
		}
		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serve legend classification, data bites and widget rendering over HTTP.
Rendered widgets are also pushed to clients connected on /api/v1/ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.API.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("host") {
			cfg.API.Host, _ = cmd.Flags().GetString("host")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := api.NewServer(cfg, newClassifier(), logging.Get(), version)
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	serveCmd.Flags().String("host", "", "listen host (overrides api.host)")
}

// newClassifier builds a legend classifier honoring the cache settings.
func newClassifier() *legend.Classifier {
	log := logging.Get()
	if !cfg.Legend.CacheEnabled {
		return legend.NewClassifier(legend.WithCache(nil), legend.WithLogger(log))
	}
	cache := infra.NewCache(cfg.Legend.CacheDuration()).WithMaxEntries(cfg.Legend.CacheMaxEntries)
	return legend.NewClassifier(legend.WithCache(cache), legend.WithLogger(log))
}

// parseScalar reads a flag value as a JSON literal, so 2019 is a number and
// "2019" (quoted) a string. Anything that is not valid JSON stays a string.
func parseScalar(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case float64, string, bool:
		return v
	}
	return s
}

func parseScalars(in []string) []any {
	if len(in) == 0 {
		return nil
	}
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = parseScalar(s)
	}
	return out
}

func functionNames() string {
	names := make([]string, len(models.DataFunctions))
	for i, f := range models.DataFunctions {
		names[i] = strings.ToLower(strings.Fields(string(f))[0])
	}
	return strings.Join(names, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
