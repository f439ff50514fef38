// Package etl cleans the raw customer and transaction tables and resolves
// transaction currencies. Every function consumes its input table and
// returns a new one; row-level defects are dropped and counted, never
// surfaced as errors. The only fatal condition in the whole ingest path is a
// schema violation, which the csvio readers raise before this package runs.
package etl

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/csvio"
	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// CleanStats reports what a cleaning pass did to its table.
type CleanStats struct {
	InputRows  int
	OutputRows int
	// Duplicates is the number of rows dropped because their key was
	// already seen (first occurrence wins).
	Duplicates int
	// Removed is the number of rows dropped by validity predicates,
	// including unparseable typed cells. Excludes duplicates.
	Removed int
}

// CleanCustomers normalizes raw customer rows:
//   - uppercase country, lowercase email, parse signup_date (YYYY-MM-DD)
//   - drop rows with a null customer_id, an invalid country, or an
//     unparseable signup date
//   - deduplicate on customer_id keeping the first occurrence in input order
//   - sort ascending by customer_id
func CleanCustomers(ctx context.Context, raw []csvio.RawCustomer, cfg config.Config) ([]domain.Customer, CleanStats) {
	log := logger.Stage(logger.FromContext(ctx), "clean_customers")

	stats := CleanStats{InputRows: len(raw)}
	seen := make(map[int64]bool, len(raw))
	cleaned := make([]domain.Customer, 0, len(raw))

	for _, row := range raw {
		if row.CustomerID == nil {
			stats.Removed++
			continue
		}
		country := strings.ToUpper(row.Country)
		if !cfg.ValidCountries[country] {
			stats.Removed++
			continue
		}
		signup, err := civil.ParseDate(row.SignupDate)
		if err != nil {
			stats.Removed++
			continue
		}
		if seen[*row.CustomerID] {
			stats.Duplicates++
			continue
		}
		seen[*row.CustomerID] = true

		cleaned = append(cleaned, domain.Customer{
			CustomerID: *row.CustomerID,
			Country:    country,
			SignupDate: signup,
			Email:      strings.ToLower(row.Email),
		})
	}

	sort.Slice(cleaned, func(i, j int) bool {
		return cleaned[i].CustomerID < cleaned[j].CustomerID
	})

	stats.OutputRows = len(cleaned)
	if stats.Duplicates > 0 {
		log.Warn().Int("duplicates", stats.Duplicates).Msg("duplicate customer_ids found")
	}
	if stats.Removed > 0 {
		log.Info().
			Int("removed", stats.Removed).
			Int("input_rows", stats.InputRows).
			Msg("dropped invalid customer rows")
	}
	log.Info().Int("rows", stats.OutputRows).Msg("cleaned customers")

	return cleaned, stats
}

// CleanTransactions normalizes raw transaction rows:
//   - uppercase currency, empty cell becomes the NA sentinel
//   - lowercase category, empty cell becomes the NA sentinel
//   - parse timestamp (YYYY-MM-DD HH:MM:SS)
//   - drop rows with null transaction_id, customer_id or amount, a
//     non-positive amount, or an unparseable timestamp
//   - deduplicate on transaction_id keeping the first occurrence
//   - sort ascending by transaction_id
func CleanTransactions(ctx context.Context, raw []csvio.RawTransaction) ([]domain.Transaction, CleanStats) {
	log := logger.Stage(logger.FromContext(ctx), "clean_transactions")

	stats := CleanStats{InputRows: len(raw)}
	seen := make(map[int64]bool, len(raw))
	cleaned := make([]domain.Transaction, 0, len(raw))

	for _, row := range raw {
		if row.TransactionID == nil || row.CustomerID == nil {
			stats.Removed++
			continue
		}
		if row.Amount == nil || *row.Amount <= 0 {
			stats.Removed++
			continue
		}
		ts, err := time.Parse(csvio.TimestampFormat, row.Timestamp)
		if err != nil {
			stats.Removed++
			continue
		}
		if seen[*row.TransactionID] {
			stats.Duplicates++
			continue
		}
		seen[*row.TransactionID] = true

		cleaned = append(cleaned, domain.Transaction{
			TransactionID: *row.TransactionID,
			CustomerID:    *row.CustomerID,
			Amount:        *row.Amount,
			Currency:      normalizeSentinel(row.Currency, strings.ToUpper),
			Category:      normalizeSentinel(row.Category, strings.ToLower),
			Timestamp:     ts,
		})
	}

	sort.Slice(cleaned, func(i, j int) bool {
		return cleaned[i].TransactionID < cleaned[j].TransactionID
	})

	stats.OutputRows = len(cleaned)
	if stats.Duplicates > 0 {
		log.Warn().Int("duplicates", stats.Duplicates).Msg("duplicate transaction_ids found")
	}
	if stats.Removed > 0 {
		log.Info().
			Int("removed", stats.Removed).
			Int("input_rows", stats.InputRows).
			Msg("dropped invalid transaction rows")
	}
	log.Info().Int("rows", stats.OutputRows).Msg("cleaned transactions")

	return cleaned, stats
}

// normalizeSentinel maps empty cells to the NA sentinel and otherwise applies
// the casing rule for the column.
func normalizeSentinel(value string, casing func(string) string) string {
	if strings.TrimSpace(value) == "" {
		return domain.SentinelNA
	}
	return casing(value)
}
