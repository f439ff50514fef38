package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
)

// Output column orders. These are part of the external contract; do not
// reorder without versioning the downstream consumers.
var (
	CustomerColumns = []string{"customer_id", "country", "signup_date", "email"}

	TransactionColumns = []string{
		"transaction_id", "customer_id", "amount", "currency",
		"timestamp", "category", "amount_in_eur",
	}

	FeatureColumns = []string{
		"customer_id", "email", "country", "signup_date",
		"total_spend", "avg_transaction_amount", "std_transaction_amount",
		"min_transaction_amount", "max_transaction_amount",
		"transaction_count",
		"first_transaction_date", "last_transaction_date",
		"days_since_last_transaction", "customer_tenure_days",
		"mean_interevent_days", "std_interevent_days",
		"preferred_category", "preferred_currency",
		"is_high_value", "is_churning", "is_churning_2", "has_single_transaction",
	}
)

// writeFile writes a complete table in one shot. Records are materialized
// before the file is opened, so a failed run never leaves a partial table.
func writeFile(path string, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("writeFile: creating directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("writeFile: opening %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("writeFile: writing header: %w", err)
	}
	for i, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writeFile: writing record %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCustomers writes the cleaned customer table.
func WriteCustomers(path string, customers []domain.Customer) error {
	records := make([][]string, 0, len(customers))
	for _, c := range customers {
		records = append(records, []string{
			strconv.FormatInt(c.CustomerID, 10),
			c.Country,
			c.SignupDate.String(),
			c.Email,
		})
	}
	return writeFile(path, CustomerColumns, records)
}

// WriteTransactions writes the cleaned transaction table. A nil AmountInEUR
// serializes as an empty cell, never as zero.
func WriteTransactions(path string, txns []domain.Transaction) error {
	records := make([][]string, 0, len(txns))
	for _, t := range txns {
		records = append(records, []string{
			strconv.FormatInt(t.TransactionID, 10),
			strconv.FormatInt(t.CustomerID, 10),
			formatFloat(t.Amount),
			t.Currency,
			t.Timestamp.Format(TimestampFormat),
			t.Category,
			formatOptionalEUR(t.AmountInEUR),
		})
	}
	return writeFile(path, TransactionColumns, records)
}

// WriteFeatures writes the customer feature table in the fixed output order.
func WriteFeatures(path string, features []domain.CustomerFeatures) error {
	records := make([][]string, 0, len(features))
	for _, f := range features {
		records = append(records, []string{
			strconv.FormatInt(f.CustomerID, 10),
			f.Email,
			f.Country,
			f.SignupDate.String(),
			formatFloat2(f.TotalSpend),
			formatOptional2(f.AvgTransactionAmount),
			formatOptional2(f.StdTransactionAmount),
			formatOptional(f.MinTransactionAmount),
			formatOptional(f.MaxTransactionAmount),
			strconv.Itoa(f.TransactionCount),
			f.FirstTransactionDate.Format(TimestampFormat),
			f.LastTransactionDate.Format(TimestampFormat),
			strconv.Itoa(f.DaysSinceLastTransaction),
			strconv.Itoa(f.CustomerTenureDays),
			formatOptional(f.MeanInterEventDays),
			formatOptional(f.StdInterEventDays),
			f.PreferredCategory,
			f.PreferredCurrency,
			strconv.FormatBool(f.IsHighValue),
			strconv.FormatBool(f.IsChurning),
			strconv.FormatBool(f.IsChurning2),
			strconv.FormatBool(f.HasSingleTransaction),
		})
	}
	return writeFile(path, FeatureColumns, records)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatFloat2 pins two decimals for monetary columns that are rounded at
// aggregation time, keeping re-runs byte-stable.
func formatFloat2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptional2(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat2(*v)
}

func formatOptionalEUR(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat2(*v)
}
