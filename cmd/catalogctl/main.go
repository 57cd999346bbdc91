package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"catalog-service/config"
	"catalog-service/internal/importer"
	"catalog-service/internal/service"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Bulk product import tools for the catalog service",
	Long: `catalogctl works with stock import files outside the HTTP API.

Examples:
  # Write a CSV template with sample rows
  catalogctl template -o products.csv

  # Check a file without touching the database
  catalogctl validate products.xlsx

  # Import a file into the database from DATABASE_URL
  catalogctl import products.csv --workers 4`,
	SilenceUsage: true,
}

var (
	verbose  bool
	noEnrich bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().BoolVar(&noEnrich, "no-enrich", false, "Do not generate missing descriptions, care instructions, SEO titles or tags")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return util.InitLogger("development", level)
	}

	rootCmd.AddCommand(newTemplateCmd(), newValidateCmd(), newImportCmd())
}

func newTemplateCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an import template with sample products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = "csv"
				if filepath.Ext(output) == ".xlsx" {
					format = "xlsx"
				}
			}

			var buf bytes.Buffer
			switch format {
			case "csv":
				buf.WriteString(importer.TemplateCSV())
			case "xlsx":
				if err := importer.TemplateXLSX(&buf); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format %q: use csv or xlsx", format)
			}

			if output == "" || output == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), &buf)
				return err
			}
			return os.WriteFile(output, buf.Bytes(), 0o644)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Template format: csv|xlsx (default from --output extension, else csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a file and preview the variants it would create",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readFile(args[0])
			if err != nil {
				return err
			}

			svc := service.NewImportService(nil, nil, nil, nil, service.ImportOptions{})
			report := svc.Validate(cmd.Context(), rows, !noEnrich)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("%d of %d rows failed validation", len(report.Errors), report.Total)
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		workers       int
		mergeVariants bool
		replaceMedia  bool
		migrate       bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a file into the catalog database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readFile(args[0])
			if err != nil {
				return err
			}

			cfg := config.Load()
			db, err := store.NewStore(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if migrate {
				if err := db.Migrate(ctx); err != nil {
					return err
				}
			}

			opts := service.ImportOptions{Workers: workers}
			if mergeVariants {
				opts.Variants = service.MergeVariants
			}
			if replaceMedia {
				opts.Media = service.ReplaceMedia
			}

			svc := service.NewImportService(db, nil, nil, nil, opts)
			result, err := svc.Import(ctx, service.ImportRequest{
				FileName: filepath.Base(args[0]),
				Rows:     rows,
				Enrich:   !noEnrich,
			})

			var verr *service.ValidationError
			if errors.As(err, &verr) {
				_ = printJSON(cmd.OutOrStdout(), verr.Rows)
				return fmt.Errorf("import blocked: %w", err)
			}
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.ErrorCount > 0 {
				return fmt.Errorf("%d of %d rows failed", result.ErrorCount, result.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Rows imported concurrently (rows of one SKU stay in order)")
	cmd.Flags().BoolVar(&mergeVariants, "merge-variants", false, "Update variants in place instead of replacing them")
	cmd.Flags().BoolVar(&replaceMedia, "replace-media", false, "Replace existing product media instead of appending")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the schema before importing")
	return cmd
}

func readFile(path string) ([]importer.ProductRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := importer.ParseFile(path, f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	util.GetLogger().Debug("File parsed", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	util.SyncLogger()
	if err != nil {
		os.Exit(1)
	}
}
