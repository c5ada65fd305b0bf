package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/qtrader-lab/qtrader/internal/datasource"
	"github.com/qtrader-lab/qtrader/internal/engine"
	"github.com/qtrader-lab/qtrader/internal/logger"
	"github.com/qtrader-lab/qtrader/internal/version"
)

// runAction loads the config and data, runs the backtest, and writes
// the result files into the output directory.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configData, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config, err := engine.ParseConfig(configData)
	if err != nil {
		return err
	}

	newLogger := logger.NewLogger
	if cmd.Bool("debug") {
		newLogger = logger.NewDebugLogger
	}

	l, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer l.Sync() //nolint:errcheck

	series, err := datasource.NewCSVLoader(l).Load(cmd.String("data"))
	if err != nil {
		return err
	}

	e, err := engine.New(config, l)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(series.Len()))
	bar.Describe(fmt.Sprintf("Running %s", config.Strategy.Name))
	e.SetProgressCallback(func(current, total int) {
		bar.Set(current) //nolint:errcheck
	})

	result, err := e.Run(ctx, series)
	if err != nil {
		return err
	}
	defer result.Close()

	outputDir := cmd.String("output")
	if err := result.Write(outputDir, engine.ExportFormat(cmd.String("format"))); err != nil {
		return err
	}

	fmt.Printf("\nFinal equity: %.2f (return %.2f%%, max drawdown %.2f%%)\n",
		result.Summary.FinalEquity,
		result.Summary.TotalReturn*100,
		result.Summary.MaxDrawdownPct*100,
	)
	fmt.Printf("Fills: %d, rejections: %d, results written to %s\n",
		len(result.Fills), len(result.Rejections), outputDir)

	return nil
}

// generateAction writes a synthetic bar series to a CSV file.
func generateAction(ctx context.Context, cmd *cli.Command) error {
	series, err := datasource.Generate(datasource.GenerateConfig{
		Bars:       int(cmd.Int("bars")),
		StartPrice: cmd.Float("start-price"),
		Drift:      cmd.Float("drift"),
		Volatility: cmd.Float("volatility"),
		Seed:       cmd.Int("seed"),
	})
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if err := datasource.WriteCSV(series, output); err != nil {
		return err
	}

	fmt.Printf("Wrote %d bars to %s\n", series.Len(), output)

	return nil
}

// schemaAction prints the JSON schema for the run configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := engine.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Run trading strategies against historical bar data",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest from a config file and a CSV data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML run configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the OHLCV CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory the result files are written to",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Result file format (csv or parquet)",
						Value: string(engine.ExportCSV),
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Enable debug logging",
					},
				},
				Action: runAction,
			},
			{
				Name:  "generate",
				Usage: "Generate a synthetic OHLCV CSV file",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "bars",
						Usage: "Number of bars to generate",
						Value: 252,
					},
					&cli.FloatFlag{
						Name:  "start-price",
						Usage: "Price of the first bar",
						Value: 100,
					},
					&cli.FloatFlag{
						Name:  "drift",
						Usage: "Per-bar drift of the log return",
						Value: 0.0002,
					},
					&cli.FloatFlag{
						Name:  "volatility",
						Usage: "Per-bar volatility of the log return",
						Value: 0.01,
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Random seed; the same seed reproduces the same series",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the CSV file to write",
						Value:   "data.csv",
					},
				},
				Action: generateAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the run configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
