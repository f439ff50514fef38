package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	projectID = "nordic-analytics-prod"
	datasetID = "analytics"
)

// InsertFeatures inserts a batch of FeatureRow into analytics.customer_features.
func InsertFeatures(ctx context.Context, rows []*FeatureRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertFeatures: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertFeaturesWithClient(ctx, client, rows)
}

// InsertFeaturesWithClient inserts a batch of FeatureRow into
// analytics.customer_features using the provided BigQuery client.
func InsertFeaturesWithClient(ctx context.Context, client *bigquery.Client, rows []*FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(featuresTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertFeatures: inserting rows: %w", err)
	}

	return nil
}

// EnsureFeaturesTable creates analytics.customer_features with a schema
// inferred from FeatureRow if it does not already exist.
func EnsureFeaturesTable(ctx context.Context, client *bigquery.Client) error {
	schema, err := bigquery.InferSchema(FeatureRow{})
	if err != nil {
		return fmt.Errorf("EnsureFeaturesTable: inferring schema: %w", err)
	}

	table := client.DatasetInProject(projectID, datasetID).Table(featuresTable)
	err = table.Create(ctx, &bigquery.TableMetadata{Schema: schema})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			return nil
		}
		return fmt.Errorf("EnsureFeaturesTable: creating table: %w", err)
	}

	return nil
}

// QueryFeaturesByRun retrieves all feature rows loaded by the given run,
// ordered by customer_id.
func QueryFeaturesByRun(ctx context.Context, loadRunID string) ([]*FeatureRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryFeaturesByRun: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryFeaturesByRunWithClient(ctx, client, loadRunID)
}

// QueryFeaturesByRunWithClient retrieves all feature rows loaded by the given
// run using the provided BigQuery client.
func QueryFeaturesByRunWithClient(ctx context.Context, client *bigquery.Client, loadRunID string) ([]*FeatureRow, error) {
	q := client.Query(`
		SELECT
			f.customer_id,
			f.email,
			f.country,
			f.signup_date,
			f.total_spend,
			f.avg_transaction_amount,
			f.std_transaction_amount,
			f.min_transaction_amount,
			f.max_transaction_amount,
			f.transaction_count,
			f.first_transaction_date,
			f.last_transaction_date,
			f.days_since_last_transaction,
			f.customer_tenure_days,
			f.mean_interevent_days,
			f.std_interevent_days,
			f.preferred_category,
			f.preferred_currency,
			f.is_high_value,
			f.is_churning,
			f.is_churning_2,
			f.has_single_transaction,
			f.load_run_id,
			f.loaded_ts
		FROM analytics.customer_features f
		WHERE f.load_run_id = @load_run_id
		ORDER BY f.customer_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "load_run_id", Value: loadRunID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryFeaturesByRun: query read: %w", err)
	}

	var rows []*FeatureRow
	for {
		var r FeatureRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryFeaturesByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
