// Command etl runs only the cleaning half of the batch: load the raw tables,
// clean them, resolve currencies and write the cleaned CSVs. The feature half
// can then run separately with the features command.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
	"github.com/dvloznov/nordic-pipeline/internal/pipeline"
)

func main() {
	log := logger.New()

	customersPath := flag.String("customers", "", "Path to the raw customers CSV (local or gs://)")
	transactionsPath := flag.String("transactions", "", "Path to the raw transactions CSV (local or gs://)")
	outputDir := flag.String("out", "output", "Directory for the cleaned tables")
	publishBucket := flag.String("publish-bucket", "", "GCS bucket to publish outputs to (optional)")
	flag.Parse()

	if *customersPath == "" || *transactionsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: etl -customers PATH -transactions PATH [-out DIR] [-publish-bucket NAME]")
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	state := pipeline.NewState(cfg, *customersPath, *transactionsPath, *outputDir)
	state.PublishBucket = *publishBucket

	log.Info().Str("run_id", state.RunID).Msg("Starting cleaning run")

	if err := pipeline.NewCleaningPipeline().Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Cleaning run failed")
	}

	fmt.Printf("Run %s complete: %d customers, %d transactions cleaned\n",
		state.RunID,
		state.Report.CustomerClean.OutputRows,
		len(state.Transactions))
}
