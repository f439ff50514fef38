// Command export-bigquery loads a customer feature CSV produced by the
// pipeline into the analytics.customer_features BigQuery table.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	bq "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/nordic-pipeline/internal/csvio"
	"github.com/dvloznov/nordic-pipeline/internal/gcs"
	infra "github.com/dvloznov/nordic-pipeline/internal/infra/bigquery"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

func main() {
	log := logger.New()

	featuresPath := flag.String("features", "", "Path to the customer feature CSV (local or gs://)")
	projectID := flag.String("project", "nordic-analytics-prod", "GCP project of the target dataset")
	ensureTable := flag.Bool("ensure-table", false, "Create the table if it does not exist")
	flag.Parse()

	if *featuresPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: export-bigquery -features PATH [-project ID] [-ensure-table]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	data, err := gcs.ReadFile(ctx, *featuresPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load feature table")
	}
	features, err := csvio.ReadFeatures(bytes.NewReader(data))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse feature table")
	}

	loadRunID := uuid.NewString()
	loadedTS := time.Now().UTC()
	rows := make([]*infra.FeatureRow, len(features))
	for i, f := range features {
		rows[i] = infra.RowFromFeatures(f, loadRunID, loadedTS)
	}

	client, err := bq.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	if *ensureTable {
		if err := infra.EnsureFeaturesTable(ctx, client); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure feature table")
		}
	}

	log.Info().
		Str("load_run_id", loadRunID).
		Int("rows", len(rows)).
		Str("source", *featuresPath).
		Msg("Loading feature rows into BigQuery")

	if err := infra.InsertFeaturesWithClient(ctx, client, rows); err != nil {
		log.Fatal().Err(err).Msg("Load failed")
	}

	fmt.Printf("Loaded %d feature rows (load run %s)\n", len(rows), loadRunID)
}
