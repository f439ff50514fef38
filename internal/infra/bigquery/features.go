// Package bigquery loads the customer feature table into BigQuery so the
// analytics warehouse can serve it alongside the flat-file outputs. The
// export runs after a pipeline run completes; it is a downstream sink, not a
// pipeline stage.
package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
)

const featuresTable = "customer_features"

// FeatureRow is the BigQuery representation of one customer feature record.
// Undefined statistics map to NULL columns, never to zero.
type FeatureRow struct {
	CustomerID int64 `bigquery:"customer_id"`

	Email      string     `bigquery:"email"`
	Country    string     `bigquery:"country"`
	SignupDate civil.Date `bigquery:"signup_date"`

	TotalSpend           float64              `bigquery:"total_spend"`
	AvgTransactionAmount bigquery.NullFloat64 `bigquery:"avg_transaction_amount"`
	StdTransactionAmount bigquery.NullFloat64 `bigquery:"std_transaction_amount"`
	MinTransactionAmount bigquery.NullFloat64 `bigquery:"min_transaction_amount"`
	MaxTransactionAmount bigquery.NullFloat64 `bigquery:"max_transaction_amount"`

	TransactionCount int64 `bigquery:"transaction_count"`

	FirstTransactionDate     time.Time `bigquery:"first_transaction_date"`
	LastTransactionDate      time.Time `bigquery:"last_transaction_date"`
	DaysSinceLastTransaction int64     `bigquery:"days_since_last_transaction"`
	CustomerTenureDays       int64     `bigquery:"customer_tenure_days"`

	MeanInterEventDays bigquery.NullFloat64 `bigquery:"mean_interevent_days"`
	StdInterEventDays  bigquery.NullFloat64 `bigquery:"std_interevent_days"`

	PreferredCategory string `bigquery:"preferred_category"`
	PreferredCurrency string `bigquery:"preferred_currency"`

	IsHighValue          bool `bigquery:"is_high_value"`
	IsChurning           bool `bigquery:"is_churning"`
	IsChurning2          bool `bigquery:"is_churning_2"`
	HasSingleTransaction bool `bigquery:"has_single_transaction"`

	// Load provenance.
	LoadRunID string    `bigquery:"load_run_id"`
	LoadedTS  time.Time `bigquery:"loaded_ts"`
}

// RowFromFeatures maps a domain feature record onto its BigQuery row,
// stamping it with the load run and time.
func RowFromFeatures(f domain.CustomerFeatures, loadRunID string, loadedTS time.Time) *FeatureRow {
	return &FeatureRow{
		CustomerID:               f.CustomerID,
		Email:                    f.Email,
		Country:                  f.Country,
		SignupDate:               f.SignupDate,
		TotalSpend:               f.TotalSpend,
		AvgTransactionAmount:     nullFloat(f.AvgTransactionAmount),
		StdTransactionAmount:     nullFloat(f.StdTransactionAmount),
		MinTransactionAmount:     nullFloat(f.MinTransactionAmount),
		MaxTransactionAmount:     nullFloat(f.MaxTransactionAmount),
		TransactionCount:         int64(f.TransactionCount),
		FirstTransactionDate:     f.FirstTransactionDate,
		LastTransactionDate:      f.LastTransactionDate,
		DaysSinceLastTransaction: int64(f.DaysSinceLastTransaction),
		CustomerTenureDays:       int64(f.CustomerTenureDays),
		MeanInterEventDays:       nullFloat(f.MeanInterEventDays),
		StdInterEventDays:        nullFloat(f.StdInterEventDays),
		PreferredCategory:        f.PreferredCategory,
		PreferredCurrency:        f.PreferredCurrency,
		IsHighValue:              f.IsHighValue,
		IsChurning:               f.IsChurning,
		IsChurning2:              f.IsChurning2,
		HasSingleTransaction:     f.HasSingleTransaction,
		LoadRunID:                loadRunID,
		LoadedTS:                 loadedTS,
	}
}

func nullFloat(v *float64) bigquery.NullFloat64 {
	if v == nil {
		return bigquery.NullFloat64{Valid: false}
	}
	return bigquery.NullFloat64{Float64: *v, Valid: true}
}
