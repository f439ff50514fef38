// Package pipeline wires the loading, cleaning, currency, feature and output
// stages into one run. Each stage is a Step operating on shared State; the
// Pipeline executes them in order and stops on the first failure.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/csvio"
	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/etl"
	"github.com/dvloznov/nordic-pipeline/internal/features"
	"github.com/dvloznov/nordic-pipeline/internal/gcs"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// Output filenames, fixed across runs so downstream consumers can address
// them without a manifest.
const (
	CleanedCustomersFile    = "cleaned_customers.csv"
	CleanedTransactionsFile = "cleaned_transactions.csv"
	FeaturesFile            = "customer_features.csv"
)

// Step is a single stage of the run.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps.
type State struct {
	RunID  string
	Config config.Config

	// Storage resolves input paths and publishes outputs. The default
	// client reads gs:// objects and local files.
	Storage gcs.StorageService

	CustomersPath    string
	TransactionsPath string
	OutputDir        string

	// PublishBucket, when set, receives every output file after the run.
	PublishBucket string

	RawCustomers    []csvio.RawCustomer
	RawTransactions []csvio.RawTransaction

	Customers    []domain.Customer
	Transactions []domain.Transaction
	Features     []domain.CustomerFeatures

	Report RunReport
}

// RunReport collects the per-run observability record: cleaning counts,
// quality metrics over the cleaned tables and the feature summary.
type RunReport struct {
	RunID string

	CustomerClean    etl.CleanStats
	TransactionClean etl.CleanStats

	CustomerQuality    etl.CustomerQuality
	TransactionQuality etl.TransactionQuality

	Summary features.Summary

	OutputFiles []string
}

// NewState creates the run state with a fresh run ID and the production
// storage client.
func NewState(cfg config.Config, customersPath, transactionsPath, outputDir string) *State {
	runID := uuid.NewString()
	return &State{
		RunID:            runID,
		Config:           cfg,
		Storage:          gcs.Client{},
		CustomersPath:    customersPath,
		TransactionsPath: transactionsPath,
		OutputDir:        outputDir,
		Report:           RunReport{RunID: runID},
	}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, logging each one. The first failing
// step aborts the run; no partial output files are produced by later steps.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx).With().Str("run_id", state.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	for i, step := range p.steps {
		log.Info().
			Int("step", i+1).
			Int("of", len(p.steps)).
			Str("name", step.Name()).
			Msg("executing pipeline step")

		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline: step %s: %w", step.Name(), err)
		}
	}

	log.Info().Int("steps", len(p.steps)).Msg("pipeline complete")
	return nil
}

// NewBatchPipeline creates the standard full run: load, clean, resolve
// currencies, enforce integrity, convert, write the cleaned tables, compute
// features and write the feature table.
func NewBatchPipeline() *Pipeline {
	return NewPipeline(
		&LoadCustomersStep{},
		&LoadTransactionsStep{},
		&CleanCustomersStep{},
		&CleanTransactionsStep{},
		&InferCurrencyStep{},
		&RemoveOrphansStep{},
		&ConvertAmountsStep{},
		&ValidateStep{},
		&WriteCleanedStep{},
		&ComputeRFMStep{},
		&ApplyFlagsStep{},
		&EnrichStep{},
		&WriteFeaturesStep{},
		&SummaryStep{},
		&PublishOutputsStep{},
	)
}

// NewCleaningPipeline runs only the ETL half: load through the cleaned-table
// write. Used when feature engineering runs separately from cleaned inputs.
func NewCleaningPipeline() *Pipeline {
	return NewPipeline(
		&LoadCustomersStep{},
		&LoadTransactionsStep{},
		&CleanCustomersStep{},
		&CleanTransactionsStep{},
		&InferCurrencyStep{},
		&RemoveOrphansStep{},
		&ConvertAmountsStep{},
		&ValidateStep{},
		&WriteCleanedStep{},
		&PublishOutputsStep{},
	)
}

// NewFeaturePipeline runs only feature engineering over already-cleaned
// tables loaded into state by the caller.
func NewFeaturePipeline() *Pipeline {
	return NewPipeline(
		&ComputeRFMStep{},
		&ApplyFlagsStep{},
		&EnrichStep{},
		&WriteFeaturesStep{},
		&SummaryStep{},
		&PublishOutputsStep{},
	)
}
