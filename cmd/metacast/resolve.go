package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/engine"
	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/report"
	"github.com/c360studio/metacast/validate"
)

func resolveCmd(opts *appOptions) *cobra.Command {
	var (
		overridePairs []string
		format        string
		publisher     string
		group         string
	)

	cmd := &cobra.Command{
		Use:   "resolve <item-record.yaml>",
		Short: "Resolve one item record into a distribution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.store.Close()

			attrs, err := loadItemFile(args[0])
			if err != nil {
				return err
			}

			overrides, err := parseOverrides(overridePairs)
			if err != nil {
				return err
			}

			itemID := strings.TrimSuffix(filepath.Base(args[0]), ".yaml")
			cfgCtx := config.Context{
				ItemID:         itemID,
				GroupName:      firstNonEmpty(group, attrs["imprint"]),
				PublisherName:  firstNonEmpty(publisher, attrs["publisher"]),
				FieldOverrides: overrides,
			}

			result := a.pipeline.Run(cmd.Context(), itemID, attrs, cfgCtx)
			if result.Err != nil {
				return result.Err
			}

			if err := result.Report.Write(os.Stdout, report.Format(format)); err != nil {
				return err
			}

			return summarizeDefects(result)
		},
	}

	cmd.Flags().StringArrayVar(&overridePairs, "override", nil, "Field override (key=value, repeatable)")
	cmd.Flags().StringVar(&format, "format", "text", "Report format (text, json)")
	cmd.Flags().StringVar(&publisher, "publisher", "", "Publisher name (defaults to the record's publisher field)")
	cmd.Flags().StringVar(&group, "group", "", "Group/imprint name (defaults to the record's imprint field)")

	return cmd
}

func batchCmd(opts *appOptions) *cobra.Command {
	var (
		overridePairs []string
		workers       int
		reportDir     string
	)

	cmd := &cobra.Command{
		Use:   "batch <item-dir>",
		Short: "Resolve every item record in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.store.Close()

			overrides, err := parseOverrides(overridePairs)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = a.settings.Batch.Workers
			}

			batch := engine.NewBatch(a.snapshotPipeline(),
				engine.WithWorkers(workers),
				engine.WithOverrides(overrides),
				engine.WithBatchLogger(a.logger))

			result, err := batch.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if reportDir != "" {
				if err := writeReports(result, reportDir); err != nil {
					return err
				}
			}

			fmt.Printf("Run %s: %d items, %d failed\n", result.RunID, len(result.Items), result.Failed)
			for _, item := range result.Items {
				if item.Err != nil {
					fmt.Printf("  %s: aborted: %v\n", item.ItemID, item.Err)
					continue
				}
				fmt.Printf("  %s: %.1f%% complete, %d validation errors remaining\n",
					item.ItemID, item.Report.Stats.Completeness, len(item.Validation.Errors))
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d of %d items failed", result.Failed, len(result.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&overridePairs, "override", nil, "Field override applied to every item (key=value, repeatable)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent items (default from settings)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Write per-item JSON reports to this directory")

	return cmd
}

func validateCmd(opts *appOptions) *cobra.Command {
	var (
		publisher string
		group     string
	)

	cmd := &cobra.Command{
		Use:   "validate <item-record.yaml>",
		Short: "Resolve an item record and report validation defects without repairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.store.Close()

			attrs, err := loadItemFile(args[0])
			if err != nil {
				return err
			}

			itemID := strings.TrimSuffix(filepath.Base(args[0]), ".yaml")
			cfgCtx := config.Context{
				ItemID:        itemID,
				GroupName:     firstNonEmpty(group, attrs["imprint"]),
				PublisherName: firstNonEmpty(publisher, attrs["publisher"]),
			}

			eng := a.pipeline.Engine()
			rec := record.New(attrs)
			if _, err := eng.Resolve(cmd.Context(), rec, cfgCtx); err != nil {
				return err
			}

			result := validate.NewValidator().Validate(rec, eng.Schema())
			for _, w := range result.Warnings {
				fmt.Printf("warning  %s: %s\n", w.Field, w.Message)
			}
			for _, e := range result.Errors {
				fmt.Printf("error    %s: %s (%s)\n", e.Field, e.Message, e.Kind)
			}
			if !result.Valid {
				return fmt.Errorf("%d validation errors", len(result.Errors))
			}
			fmt.Printf("%s: valid\n", itemID)
			return nil
		},
	}

	cmd.Flags().StringVar(&publisher, "publisher", "", "Publisher name (defaults to the record's publisher field)")
	cmd.Flags().StringVar(&group, "group", "", "Group/imprint name (defaults to the record's imprint field)")

	return cmd
}

func writeReports(result *engine.BatchResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	for _, item := range result.Items {
		if item.Report == nil {
			continue
		}
		f, err := os.Create(filepath.Join(dir, item.ItemID+".json"))
		if err != nil {
			return err
		}
		werr := item.Report.WriteJSON(f)
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

func summarizeDefects(result *engine.ItemResult) error {
	remaining := result.Validation.Errors
	if len(remaining) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stderr, "\nUnresolved validation errors:")
	for _, e := range remaining {
		fmt.Fprintf(os.Stderr, "  %s: %s (%s)\n", e.Field, e.Message, e.Kind)
	}
	return fmt.Errorf("%d validation errors remain", len(remaining))
}

func loadItemFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item record: %w", err)
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse item record %s: %w", path, err)
	}
	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		attrs[k] = config.Stringify(v)
	}
	return attrs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
