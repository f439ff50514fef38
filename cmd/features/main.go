// Command features runs feature engineering over already-cleaned tables
// produced by the etl command and writes the customer feature table.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/csvio"
	"github.com/dvloznov/nordic-pipeline/internal/gcs"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
	"github.com/dvloznov/nordic-pipeline/internal/pipeline"
)

func main() {
	log := logger.New()

	customersPath := flag.String("customers", "", "Path to the cleaned customers CSV (local or gs://)")
	transactionsPath := flag.String("transactions", "", "Path to the cleaned transactions CSV (local or gs://)")
	outputDir := flag.String("out", "output", "Directory for the feature table")
	publishBucket := flag.String("publish-bucket", "", "GCS bucket to publish outputs to (optional)")
	referenceDate := flag.String("reference-date", "", "Recency anchor as YYYY-MM-DD (defaults to the latest transaction)")
	flag.Parse()

	if *customersPath == "" || *transactionsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: features -customers PATH -transactions PATH [-out DIR] [-publish-bucket NAME] [-reference-date YYYY-MM-DD]")
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *referenceDate != "" {
		d, err := civil.ParseDate(*referenceDate)
		if err != nil {
			log.Fatal().Err(err).Str("reference_date", *referenceDate).Msg("Invalid reference date")
		}
		cfg.ReferenceDate = &d
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	state := pipeline.NewState(cfg, *customersPath, *transactionsPath, *outputDir)
	state.PublishBucket = *publishBucket

	customersData, err := gcs.ReadFile(ctx, *customersPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load cleaned customers")
	}
	state.Customers, err = csvio.ReadCleanedCustomers(bytes.NewReader(customersData))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse cleaned customers")
	}

	txnsData, err := gcs.ReadFile(ctx, *transactionsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load cleaned transactions")
	}
	state.Transactions, err = csvio.ReadCleanedTransactions(bytes.NewReader(txnsData))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse cleaned transactions")
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("customers", len(state.Customers)).
		Int("transactions", len(state.Transactions)).
		Msg("Starting feature run")

	if err := pipeline.NewFeaturePipeline().Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Feature run failed")
	}

	fmt.Printf("Run %s complete: %d customers in %s\n",
		state.RunID, state.Report.Summary.TotalCustomers, *outputDir)
}
