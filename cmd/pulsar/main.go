package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/featurize"
	"github.com/pulsarml/pulsar/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PULSAR")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	root := &cobra.Command{
		Use:   "pulsar",
		Short: "Pulsar - text featurization pipeline compiler",
		Long: `Pulsar compiles declarative text featurization configurations into
fitted, persistable pipelines and replays them against new data.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    v.GetString("log_level"),
				Encoding: "console",
			})
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Pulsar v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var fitOptions, fitInput, fitModel string
	var fitCompress bool
	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a featurization pipeline over a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(fitOptions, fitInput, fitModel, fitCompress)
		},
	}
	fitCmd.Flags().StringVar(&fitOptions, "options", "", "pipeline options YAML file (required)")
	fitCmd.Flags().StringVar(&fitInput, "input", "", "input CSV file with a header row (required)")
	fitCmd.Flags().StringVar(&fitModel, "model", "", "output model file (required)")
	fitCmd.Flags().BoolVar(&fitCompress, "compress", false, "zstd-compress the model body")
	_ = fitCmd.MarkFlagRequired("options")
	_ = fitCmd.MarkFlagRequired("input")
	_ = fitCmd.MarkFlagRequired("model")
	root.AddCommand(fitCmd)

	var trModel, trInput, trOutput string
	transformCmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform a CSV file with a fitted pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(trModel, trInput, trOutput)
		},
	}
	transformCmd.Flags().StringVar(&trModel, "model", "", "fitted model file (required)")
	transformCmd.Flags().StringVar(&trInput, "input", "", "input CSV file with a header row (required)")
	transformCmd.Flags().StringVar(&trOutput, "output", "", "output JSON-lines file (default stdout)")
	_ = transformCmd.MarkFlagRequired("model")
	_ = transformCmd.MarkFlagRequired("input")
	root.AddCommand(transformCmd)

	var schOptions, schColumns string
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Project the output schema for an input column list, without data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(schOptions, schColumns)
		},
	}
	schemaCmd.Flags().StringVar(&schOptions, "options", "", "pipeline options YAML file (required)")
	schemaCmd.Flags().StringVar(&schColumns, "columns", "", "comma-separated input text columns (required)")
	_ = schemaCmd.MarkFlagRequired("options")
	_ = schemaCmd.MarkFlagRequired("columns")
	root.AddCommand(schemaCmd)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func loadOptions(path string) (featurize.Options, error) {
	var opts featurize.Options
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options file: %w", err)
	}
	return opts, nil
}

// loadCSV reads a header-rowed CSV file into a materialized view of
// scalar text columns.
func loadCSV(path string) (dataview.View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := make([]dataview.Column, len(header))
	data := make(map[string][]interface{}, len(header))
	for i, name := range header {
		cols[i] = dataview.Column{Name: name, Type: dataview.TypeText}
		data[name] = nil
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		for i, name := range header {
			data[name] = append(data[name], record[i])
		}
	}

	schema, err := dataview.NewSchema(cols...)
	if err != nil {
		return nil, err
	}
	return dataview.NewMemoryView(schema, data)
}

func runFit(optionsPath, inputPath, modelPath string, compress bool) error {
	opts, err := loadOptions(optionsPath)
	if err != nil {
		return err
	}
	input, err := loadCSV(inputPath)
	if err != nil {
		return err
	}

	pipeline, err := featurize.Fit(opts, input)
	if err != nil {
		return err
	}

	out, err := os.Create(modelPath)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer out.Close()

	if compress {
		err = pipeline.SaveCompressed(out)
	} else {
		err = pipeline.Save(out)
	}
	if err != nil {
		return err
	}

	logger.Info("pipeline fitted",
		zap.String("output_column", pipeline.OutputColumn()),
		zap.Int("rows", input.RowCount()),
		zap.String("model", modelPath))
	return nil
}

func runTransform(modelPath, inputPath, outputPath string) error {
	f, err := os.Open(modelPath)
	if err != nil {
		return fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	pipeline, err := featurize.Load(f)
	if err != nil {
		return err
	}
	input, err := loadCSV(inputPath)
	if err != nil {
		return err
	}

	view, err := pipeline.Transform(input)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		out, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()
		w = out
	}

	enc := json.NewEncoder(w)
	for i := 0; i < view.RowCount(); i++ {
		row, err := dataview.RowAt(view, i)
		if err != nil {
			return err
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
	}

	logger.Info("transform complete",
		zap.Int("rows", view.RowCount()),
		zap.String("output_column", pipeline.OutputColumn()))
	return nil
}

func runSchema(optionsPath, columnList string) error {
	opts, err := loadOptions(optionsPath)
	if err != nil {
		return err
	}

	var cols []dataview.Column
	for _, name := range strings.Split(columnList, ",") {
		cols = append(cols, dataview.Column{Name: strings.TrimSpace(name), Type: dataview.TypeText})
	}
	input, err := dataview.NewSchema(cols...)
	if err != nil {
		return err
	}

	projected, err := featurize.ProjectOutputSchema(opts, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(projected.Columns())
}
