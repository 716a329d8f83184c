package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldworks/enrich-cli/internal/adapter"
	"github.com/veldworks/enrich-cli/internal/dataset"
	"github.com/veldworks/enrich-cli/internal/enrich"
	"github.com/veldworks/enrich-cli/internal/model"
	"github.com/veldworks/enrich-cli/internal/normalize"
	"github.com/veldworks/enrich-cli/internal/resilience"
	"github.com/veldworks/enrich-cli/internal/store"
)

var (
	enrichInput       string
	enrichOutput      string
	enrichSheet       string
	enrichLimit       int
	enrichConcurrency int
	enrichDryRun      bool
	enrichOffline     bool
	enrichFixtures    string
	enrichPolicy      string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the enrichment pipeline on a CSV or XLSX dataset",
	Long: `Reads an organisation dataset, researches each row through the
configured adapter, and writes the gated results back out.

Examples:
  # Validate the dataset schema without running anything
  enrich-cli enrich --input schools.csv --dry-run

  # Offline run from a fixture file (no API key needed)
  enrich-cli enrich --input schools.csv --offline --fixtures findings.json

  # Full run with bounded lookup concurrency
  enrich-cli enrich --input schools.xlsx --output enriched.csv --concurrency 8`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		table, err := readDataset(enrichInput, enrichSheet)
		if err != nil {
			return err
		}
		if enrichLimit > 0 {
			table.Truncate(enrichLimit)
		}
		zap.L().Info("enrich: dataset loaded",
			zap.String("input", enrichInput),
			zap.Int("rows", table.RowCount()),
		)

		if enrichDryRun {
			return dryRunCheck(table)
		}

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close()

		a, err := buildAdapter()
		if err != nil {
			return err
		}

		gateCfg := enrich.GateConfig{
			MinConfidence:         cfg.Gate.MinConfidence,
			RequireOfficialSource: cfg.Gate.RequireOfficialSource,
		}
		policyPath := enrichPolicy
		if policyPath == "" {
			policyPath = cfg.Gate.PolicyPath
		}
		var keywords []string
		if policyPath != "" {
			policy, policyErr := enrich.LoadPolicy(policyPath)
			if policyErr != nil {
				return policyErr
			}
			gateCfg, keywords = policy.Apply(gateCfg)
		}

		concurrency := enrichConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Pipeline.Concurrency
		}
		proc := enrich.NewProcessor(&normalize.Default{}, gateCfg, keywords)
		orch := enrich.NewOrchestrator(proc, a, ledger, enrich.OrchestratorConfig{
			Concurrency:       concurrency,
			LookupTimeoutSecs: cfg.Pipeline.LookupTimeoutSecs,
		})

		result, err := orch.Run(ctx, table)
		if err != nil {
			return eris.Wrap(err, "enrich: run")
		}

		// Evidence is persisted by the orchestrator; the remaining ledgers
		// are appended here, once per run.
		persistCtx := context.WithoutCancel(ctx)
		if err := ledger.RecordRollbacks(persistCtx, result.Rollbacks); err != nil {
			zap.L().Warn("enrich: failed to persist rollbacks", zap.Error(err))
		}
		if err := ledger.RecordSanityFindings(persistCtx, result.SanityFindings); err != nil {
			zap.L().Warn("enrich: failed to persist sanity findings", zap.Error(err))
		}
		if err := ledger.RecordQualityIssues(persistCtx, result.QualityIssues); err != nil {
			zap.L().Warn("enrich: failed to persist quality issues", zap.Error(err))
		}

		outPath := enrichOutput
		if outPath == "" {
			outPath = enrichInput
			if strings.EqualFold(filepath.Ext(outPath), ".xlsx") {
				outPath = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "-enriched.csv"
			}
		}
		if err := dataset.WriteCSV(table, outPath); err != nil {
			return err
		}

		m := result.Metrics
		zap.L().Info("enrich: metrics",
			zap.Int("rows_total", m.RowsTotal),
			zap.Int("processed_rows", m.ProcessedRows),
			zap.Int("enriched_rows", m.EnrichedRows),
			zap.Int("verified_rows", m.VerifiedRows),
			zap.Int("issues_found", m.IssuesFound),
			zap.Int("adapter_failures", m.AdapterFailures),
			zap.Int("sanity_issues", m.SanityIssues),
			zap.Int("quality_rejections", m.QualityRejections),
			zap.Int("quality_issues", m.QualityIssues),
		)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "path to the dataset CSV or XLSX file (required)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output CSV path (default: overwrite input, or <input>-enriched.csv for XLSX)")
	enrichCmd.Flags().StringVar(&enrichSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "max rows to process (0 = all)")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "max concurrent research lookups (default from config)")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "validate the dataset schema and exit")
	enrichCmd.Flags().BoolVar(&enrichOffline, "offline", false, "use the static fixture adapter (no API key needed)")
	enrichCmd.Flags().StringVar(&enrichFixtures, "fixtures", "", "path to a JSON findings fixture file (offline mode)")
	enrichCmd.Flags().StringVar(&enrichPolicy, "policy", "", "path to a gate policy YAML file (default from config)")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}

// readDataset loads a CSV or XLSX dataset by file extension.
func readDataset(path, sheet string) (*dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return dataset.ReadXLSX(path, sheet)
	case ".csv":
		return dataset.ReadCSV(path)
	default:
		return nil, eris.Errorf("enrich: unsupported dataset format %q", filepath.Ext(path))
	}
}

// dryRunCheck validates the schema and prints the header as JSON.
func dryRunCheck(table *dataset.Table) error {
	if err := table.Require(
		model.ColName, model.ColProvince, model.ColStatus,
		model.ColWebsiteURL, model.ColContactPerson, model.ColContactNumber, model.ColContactEmail,
	); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"columns": table.Columns(),
		"rows":    table.RowCount(),
	})
}

// openLedger builds the evidence ledger for the configured driver.
func openLedger(ctx context.Context) (store.Ledger, error) {
	var ledger store.Ledger
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		ledger = pg
	case "sqlite", "":
		sl, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		ledger = sl
	default:
		return nil, eris.Errorf("enrich: unknown store driver %q", cfg.Store.Driver)
	}
	if err := ledger.Migrate(ctx); err != nil {
		_ = ledger.Close()
		return nil, err
	}
	return ledger, nil
}

// buildAdapter selects the research adapter: --offline or adapter.mode=static
// use the JSON fixture adapter, everything else the HTTP research API.
func buildAdapter() (adapter.Adapter, error) {
	if enrichOffline || cfg.Adapter.Mode == "static" {
		path := enrichFixtures
		if path == "" {
			path = cfg.Adapter.FixturePath
		}
		if path == "" {
			zap.L().Warn("enrich: offline mode with no fixture file, all lookups return empty findings")
			return adapter.NewStatic(nil), nil
		}
		return adapter.LoadStatic(path)
	}

	if cfg.Adapter.BaseURL == "" {
		return nil, eris.New("enrich: adapter.base_url is required (set ENRICH_ADAPTER_BASE_URL or use --offline)")
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Adapter.MaxRetries
	return adapter.NewHTTP(adapter.HTTPConfig{
		BaseURL:     cfg.Adapter.BaseURL,
		Key:         cfg.Adapter.Key,
		TimeoutSecs: cfg.Adapter.TimeoutSecs,
		RatePerSec:  cfg.Adapter.RatePerSec,
		Retry:       retry,
	}), nil
}
