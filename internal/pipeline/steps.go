package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/dvloznov/nordic-pipeline/internal/csvio"
	"github.com/dvloznov/nordic-pipeline/internal/etl"
	"github.com/dvloznov/nordic-pipeline/internal/features"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// LoadCustomersStep reads the raw customer table from local disk or GCS.
type LoadCustomersStep struct{}

func (s *LoadCustomersStep) Name() string { return "load_customers" }

func (s *LoadCustomersStep) Execute(ctx context.Context, state *State) error {
	data, err := state.Storage.ReadFile(ctx, state.CustomersPath)
	if err != nil {
		return fmt.Errorf("loading customers from %s: %w", state.CustomersPath, err)
	}

	raw, err := csvio.ReadCustomers(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing customers: %w", err)
	}
	state.RawCustomers = raw

	log := logger.Stage(logger.FromContext(ctx), s.Name())
	log.Info().
		Int("rows", len(raw)).
		Str("path", state.CustomersPath).
		Msg("customer table loaded")
	return nil
}

// LoadTransactionsStep reads the raw transaction table from local disk or GCS.
type LoadTransactionsStep struct{}

func (s *LoadTransactionsStep) Name() string { return "load_transactions" }

func (s *LoadTransactionsStep) Execute(ctx context.Context, state *State) error {
	data, err := state.Storage.ReadFile(ctx, state.TransactionsPath)
	if err != nil {
		return fmt.Errorf("loading transactions from %s: %w", state.TransactionsPath, err)
	}

	raw, err := csvio.ReadTransactions(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing transactions: %w", err)
	}
	state.RawTransactions = raw

	log := logger.Stage(logger.FromContext(ctx), s.Name())
	log.Info().
		Int("rows", len(raw)).
		Str("path", state.TransactionsPath).
		Msg("transaction table loaded")
	return nil
}

// CleanCustomersStep validates, normalizes and deduplicates the customer
// table.
type CleanCustomersStep struct{}

func (s *CleanCustomersStep) Name() string { return "clean_customers" }

func (s *CleanCustomersStep) Execute(ctx context.Context, state *State) error {
	customers, stats := etl.CleanCustomers(ctx, state.RawCustomers, state.Config)
	state.Customers = customers
	state.Report.CustomerClean = stats
	return nil
}

// CleanTransactionsStep validates, normalizes and deduplicates the
// transaction table.
type CleanTransactionsStep struct{}

func (s *CleanTransactionsStep) Name() string { return "clean_transactions" }

func (s *CleanTransactionsStep) Execute(ctx context.Context, state *State) error {
	txns, stats := etl.CleanTransactions(ctx, state.RawTransactions)
	state.Transactions = txns
	state.Report.TransactionClean = stats
	return nil
}

// InferCurrencyStep fills unknown transaction currencies from the customer's
// country. Disabled by config it passes the table through untouched.
type InferCurrencyStep struct{}

func (s *InferCurrencyStep) Name() string { return "infer_currency" }

func (s *InferCurrencyStep) Execute(ctx context.Context, state *State) error {
	if !state.Config.InferMissingCurrency {
		log := logger.Stage(logger.FromContext(ctx), s.Name())
		log.Info().
			Msg("currency inference disabled")
		return nil
	}
	state.Transactions = etl.InferCurrency(ctx, state.Transactions, state.Customers, state.Config)
	return nil
}

// RemoveOrphansStep drops transactions whose customer is not in the cleaned
// customer table.
type RemoveOrphansStep struct{}

func (s *RemoveOrphansStep) Name() string { return "remove_orphans" }

func (s *RemoveOrphansStep) Execute(ctx context.Context, state *State) error {
	state.Transactions = etl.RemoveOrphans(ctx, state.Transactions, state.Customers)
	return nil
}

// ConvertAmountsStep converts transaction amounts to EUR using the configured
// rates.
type ConvertAmountsStep struct{}

func (s *ConvertAmountsStep) Name() string { return "convert_amounts" }

func (s *ConvertAmountsStep) Execute(ctx context.Context, state *State) error {
	state.Transactions = etl.ConvertAmounts(ctx, state.Transactions, state.Config)
	return nil
}

// ValidateStep computes quality metrics over both cleaned tables and records
// them in the run report.
type ValidateStep struct{}

func (s *ValidateStep) Name() string { return "validate" }

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	state.Report.CustomerQuality = etl.ValidateCustomers(state.Customers)
	state.Report.TransactionQuality = etl.ValidateTransactions(state.Transactions)

	log := logger.Stage(logger.FromContext(ctx), s.Name())
	log.Info().
		Int("customers", state.Report.CustomerQuality.TotalCustomers).
		Strs("countries", state.Report.CustomerQuality.Countries).
		Int("duplicate_emails", state.Report.CustomerQuality.DuplicateEmails).
		Msg("customer table quality")
	log.Info().
		Int("transactions", state.Report.TransactionQuality.TotalTransactions).
		Int("unique_customers", state.Report.TransactionQuality.UniqueCustomers).
		Strs("currencies", state.Report.TransactionQuality.Currencies).
		Int("na_currency", state.Report.TransactionQuality.NACurrencyCount).
		Int("na_category", state.Report.TransactionQuality.NACategoryCount).
		Msg("transaction table quality")
	return nil
}

// WriteCleanedStep writes both cleaned tables to the output directory.
type WriteCleanedStep struct{}

func (s *WriteCleanedStep) Name() string { return "write_cleaned" }

func (s *WriteCleanedStep) Execute(ctx context.Context, state *State) error {
	customersPath := filepath.Join(state.OutputDir, CleanedCustomersFile)
	if err := csvio.WriteCustomers(customersPath, state.Customers); err != nil {
		return fmt.Errorf("writing cleaned customers: %w", err)
	}
	state.Report.OutputFiles = append(state.Report.OutputFiles, customersPath)

	txnsPath := filepath.Join(state.OutputDir, CleanedTransactionsFile)
	if err := csvio.WriteTransactions(txnsPath, state.Transactions); err != nil {
		return fmt.Errorf("writing cleaned transactions: %w", err)
	}
	state.Report.OutputFiles = append(state.Report.OutputFiles, txnsPath)

	log := logger.Stage(logger.FromContext(ctx), s.Name())
	log.Info().
		Str("customers", customersPath).
		Str("transactions", txnsPath).
		Msg("cleaned tables written")
	return nil
}

// ComputeRFMStep aggregates the cleaned transactions into per-customer
// recency, frequency and monetary features.
type ComputeRFMStep struct{}

func (s *ComputeRFMStep) Name() string { return "compute_rfm" }

func (s *ComputeRFMStep) Execute(ctx context.Context, state *State) error {
	state.Features = features.ComputeRFM(ctx, state.Transactions, state.Config.ReferenceDate)
	return nil
}

// ApplyFlagsStep derives the behavioral flags from the aggregated features.
type ApplyFlagsStep struct{}

func (s *ApplyFlagsStep) Name() string { return "apply_flags" }

func (s *ApplyFlagsStep) Execute(ctx context.Context, state *State) error {
	state.Features = features.ApplyFlags(ctx, state.Features, state.Config)
	return nil
}

// EnrichStep joins customer attributes onto the feature table.
type EnrichStep struct{}

func (s *EnrichStep) Name() string { return "enrich" }

func (s *EnrichStep) Execute(ctx context.Context, state *State) error {
	state.Features = features.Enrich(ctx, state.Features, state.Customers)
	return nil
}

// WriteFeaturesStep writes the feature table to the output directory.
type WriteFeaturesStep struct{}

func (s *WriteFeaturesStep) Name() string { return "write_features" }

func (s *WriteFeaturesStep) Execute(ctx context.Context, state *State) error {
	featuresPath := filepath.Join(state.OutputDir, FeaturesFile)
	if err := csvio.WriteFeatures(featuresPath, state.Features); err != nil {
		return fmt.Errorf("writing features: %w", err)
	}
	state.Report.OutputFiles = append(state.Report.OutputFiles, featuresPath)

	log := logger.Stage(logger.FromContext(ctx), s.Name())
	log.Info().
		Int("customers", len(state.Features)).
		Str("path", featuresPath).
		Msg("feature table written")
	return nil
}

// SummaryStep computes and logs the run-level feature summary.
type SummaryStep struct{}

func (s *SummaryStep) Name() string { return "summary" }

func (s *SummaryStep) Execute(ctx context.Context, state *State) error {
	state.Report.Summary = features.Summarize(state.Features)
	state.Report.Summary.Log(ctx)
	return nil
}

// PublishOutputsStep uploads every output file to the publish bucket under a
// per-run prefix. A run without a publish bucket skips it.
type PublishOutputsStep struct{}

func (s *PublishOutputsStep) Name() string { return "publish_outputs" }

func (s *PublishOutputsStep) Execute(ctx context.Context, state *State) error {
	if state.PublishBucket == "" {
		return nil
	}

	log := logger.Stage(logger.FromContext(ctx), s.Name())
	for _, file := range state.Report.OutputFiles {
		object := path.Join("runs", state.RunID, filepath.Base(file))
		if err := state.Storage.UploadFile(ctx, state.PublishBucket, object, file); err != nil {
			return fmt.Errorf("uploading %s to gs://%s/%s: %w", file, state.PublishBucket, object, err)
		}
		log.Info().
			Str("bucket", state.PublishBucket).
			Str("object", object).
			Msg("output published")
	}
	return nil
}
