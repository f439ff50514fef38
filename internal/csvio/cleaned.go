package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
)

// ReadCleanedCustomers reads a customer table previously written by
// WriteCustomers. Unlike the raw readers it is strict: these files are
// produced by the pipeline, so a malformed cell means the file contract was
// broken and the read fails.
func ReadCleanedCustomers(r io.Reader) ([]domain.Customer, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadCleanedCustomers: reading header: %w", err)
	}
	h, err := newHeader(head, CustomerColumns)
	if err != nil {
		return nil, fmt.Errorf("ReadCleanedCustomers: %w", err)
	}

	var rows []domain.Customer
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedCustomers: reading record: %w", err)
		}
		line++

		id, err := strconv.ParseInt(h.get(record, "customer_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedCustomers: line %d: customer_id: %w", line, err)
		}
		signup, err := civil.ParseDate(h.get(record, "signup_date"))
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedCustomers: line %d: signup_date: %w", line, err)
		}

		rows = append(rows, domain.Customer{
			CustomerID: id,
			Country:    h.get(record, "country"),
			SignupDate: signup,
			Email:      h.get(record, "email"),
		})
	}
	return rows, nil
}

// ReadCleanedTransactions reads a transaction table previously written by
// WriteTransactions, including the amount_in_eur column (empty = no rate).
func ReadCleanedTransactions(r io.Reader) ([]domain.Transaction, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadCleanedTransactions: reading header: %w", err)
	}
	h, err := newHeader(head, TransactionColumns)
	if err != nil {
		return nil, fmt.Errorf("ReadCleanedTransactions: %w", err)
	}

	var rows []domain.Transaction
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedTransactions: reading record: %w", err)
		}
		line++

		txID, err := strconv.ParseInt(h.get(record, "transaction_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedTransactions: line %d: transaction_id: %w", line, err)
		}
		custID, err := strconv.ParseInt(h.get(record, "customer_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedTransactions: line %d: customer_id: %w", line, err)
		}
		amount, err := strconv.ParseFloat(h.get(record, "amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedTransactions: line %d: amount: %w", line, err)
		}
		ts, err := time.Parse(TimestampFormat, h.get(record, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("ReadCleanedTransactions: line %d: timestamp: %w", line, err)
		}

		var amountInEUR *float64
		if cell := h.get(record, "amount_in_eur"); cell != "" {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("ReadCleanedTransactions: line %d: amount_in_eur: %w", line, err)
			}
			amountInEUR = &v
		}

		rows = append(rows, domain.Transaction{
			TransactionID: txID,
			CustomerID:    custID,
			Amount:        amount,
			Currency:      h.get(record, "currency"),
			Category:      h.get(record, "category"),
			Timestamp:     ts,
			AmountInEUR:   amountInEUR,
		})
	}
	return rows, nil
}

// ReadFeatures reads a customer feature table previously written by
// WriteFeatures, for downstream loading (e.g. the BigQuery export).
func ReadFeatures(r io.Reader) ([]domain.CustomerFeatures, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadFeatures: reading header: %w", err)
	}
	h, err := newHeader(head, FeatureColumns)
	if err != nil {
		return nil, fmt.Errorf("ReadFeatures: %w", err)
	}

	var rows []domain.CustomerFeatures
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadFeatures: reading record: %w", err)
		}
		line++

		f, err := featureFromRecord(h, record)
		if err != nil {
			return nil, fmt.Errorf("ReadFeatures: line %d: %w", line, err)
		}
		rows = append(rows, f)
	}
	return rows, nil
}

func featureFromRecord(h *header, record []string) (domain.CustomerFeatures, error) {
	var f domain.CustomerFeatures
	var err error

	if f.CustomerID, err = strconv.ParseInt(h.get(record, "customer_id"), 10, 64); err != nil {
		return f, fmt.Errorf("customer_id: %w", err)
	}
	f.Email = h.get(record, "email")
	f.Country = h.get(record, "country")
	if f.SignupDate, err = civil.ParseDate(h.get(record, "signup_date")); err != nil {
		return f, fmt.Errorf("signup_date: %w", err)
	}

	if f.TotalSpend, err = strconv.ParseFloat(h.get(record, "total_spend"), 64); err != nil {
		return f, fmt.Errorf("total_spend: %w", err)
	}
	if f.AvgTransactionAmount, err = optionalFloat(h.get(record, "avg_transaction_amount")); err != nil {
		return f, fmt.Errorf("avg_transaction_amount: %w", err)
	}
	if f.StdTransactionAmount, err = optionalFloat(h.get(record, "std_transaction_amount")); err != nil {
		return f, fmt.Errorf("std_transaction_amount: %w", err)
	}
	if f.MinTransactionAmount, err = optionalFloat(h.get(record, "min_transaction_amount")); err != nil {
		return f, fmt.Errorf("min_transaction_amount: %w", err)
	}
	if f.MaxTransactionAmount, err = optionalFloat(h.get(record, "max_transaction_amount")); err != nil {
		return f, fmt.Errorf("max_transaction_amount: %w", err)
	}

	if f.TransactionCount, err = strconv.Atoi(h.get(record, "transaction_count")); err != nil {
		return f, fmt.Errorf("transaction_count: %w", err)
	}

	if f.FirstTransactionDate, err = time.Parse(TimestampFormat, h.get(record, "first_transaction_date")); err != nil {
		return f, fmt.Errorf("first_transaction_date: %w", err)
	}
	if f.LastTransactionDate, err = time.Parse(TimestampFormat, h.get(record, "last_transaction_date")); err != nil {
		return f, fmt.Errorf("last_transaction_date: %w", err)
	}
	if f.DaysSinceLastTransaction, err = strconv.Atoi(h.get(record, "days_since_last_transaction")); err != nil {
		return f, fmt.Errorf("days_since_last_transaction: %w", err)
	}
	if f.CustomerTenureDays, err = strconv.Atoi(h.get(record, "customer_tenure_days")); err != nil {
		return f, fmt.Errorf("customer_tenure_days: %w", err)
	}

	if f.MeanInterEventDays, err = optionalFloat(h.get(record, "mean_interevent_days")); err != nil {
		return f, fmt.Errorf("mean_interevent_days: %w", err)
	}
	if f.StdInterEventDays, err = optionalFloat(h.get(record, "std_interevent_days")); err != nil {
		return f, fmt.Errorf("std_interevent_days: %w", err)
	}

	f.PreferredCategory = h.get(record, "preferred_category")
	f.PreferredCurrency = h.get(record, "preferred_currency")

	if f.IsHighValue, err = strconv.ParseBool(h.get(record, "is_high_value")); err != nil {
		return f, fmt.Errorf("is_high_value: %w", err)
	}
	if f.IsChurning, err = strconv.ParseBool(h.get(record, "is_churning")); err != nil {
		return f, fmt.Errorf("is_churning: %w", err)
	}
	if f.IsChurning2, err = strconv.ParseBool(h.get(record, "is_churning_2")); err != nil {
		return f, fmt.Errorf("is_churning_2: %w", err)
	}
	if f.HasSingleTransaction, err = strconv.ParseBool(h.get(record, "has_single_transaction")); err != nil {
		return f, fmt.Errorf("has_single_transaction: %w", err)
	}

	return f, nil
}

func optionalFloat(cell string) (*float64, error) {
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
