package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"chatrelay/internal/dataset"
	"chatrelay/internal/storage"
)

var (
	inputPath  string
	outputPath string
	formatName string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a CSV user mapping into a JSONL dataset",
	Long: `Reads a CSV export with Display Name, Email and External Id columns
and writes one JSON entry per user to a JSONL file. With --format chat the
entries are chat-format training examples instead of flat records. With
--db the converted users are also upserted into a local SQLite database.`,
	RunE: runConvert,
}

func init() {
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the input CSV file (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to the output JSONL file (required)")
	rootCmd.Flags().StringVarP(&formatName, "format", "f", "records", "output format: records or chat")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "optional SQLite database to upsert users into")
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	var format dataset.Format
	switch formatName {
	case "records":
		format = dataset.FormatRecords
	case "chat":
		format = dataset.FormatChat
	default:
		return fmt.Errorf("unknown format %q: must be records or chat", formatName)
	}

	conv := dataset.NewConverter(format)

	if dbPath != "" {
		db, err := storage.New(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := storage.Migrate(db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		conv.Store = storage.NewUserRepo(db)
	}

	// Row count is unknown until the file is fully read, so use an
	// indeterminate spinner advanced per row.
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Converting users"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	conv.OnRow = func(dataset.Record) {
		_ = bar.Add(1)
	}

	stats, err := conv.ConvertFile(context.Background(), inputPath, outputPath)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Converted %d rows: %d entries written, %d skipped -> %s\n",
		stats.RowsRead, stats.Entries, stats.Skipped, outputPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
