// Command pipeline runs the full batch: load the raw customer and
// transaction tables, clean them, resolve currencies, compute the customer
// feature table and write every output CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
	"github.com/dvloznov/nordic-pipeline/internal/pipeline"
)

func main() {
	log := logger.New()

	customersPath := flag.String("customers", "", "Path to the raw customers CSV (local or gs://)")
	transactionsPath := flag.String("transactions", "", "Path to the raw transactions CSV (local or gs://)")
	outputDir := flag.String("out", "output", "Directory for the cleaned and feature tables")
	publishBucket := flag.String("publish-bucket", "", "GCS bucket to publish outputs to (optional)")
	referenceDate := flag.String("reference-date", "", "Recency anchor as YYYY-MM-DD (defaults to the latest transaction)")
	flag.Parse()

	if *customersPath == "" || *transactionsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pipeline -customers PATH -transactions PATH [-out DIR] [-publish-bucket NAME] [-reference-date YYYY-MM-DD]")
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

	log.Info().
		Str("run_id", state.RunID).
		Str("customers", *customersPath).
		Str("transactions", *transactionsPath).
		Str("out", *outputDir).
		Msg("Starting batch run")

	if err := pipeline.NewBatchPipeline().Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Batch run failed")
	}

	fmt.Printf("Run %s complete: %d customers in %s\n",
		state.RunID, state.Report.Summary.TotalCustomers, *outputDir)
}
