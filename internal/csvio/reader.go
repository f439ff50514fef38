// Package csvio is the tabular I/O boundary of the pipeline. It reads raw
// input files into loosely-typed rows (nullable cells, no validation beyond
// the column contract) and writes the cleaned and feature tables with fixed,
// documented column orders.
//
// A missing or misnamed column is a schema violation and aborts the read;
// a cell that fails to parse becomes a null and is left for the normalizer
// to drop and count.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fixed input formats. Timestamps carry a time of day, calendar dates do not.
const (
	DateFormat      = "2006-01-02"
	TimestampFormat = "2006-01-02 15:04:05"
)

// RawCustomer is one unvalidated customer row. Nil means the cell was empty
// or unparseable for its declared type.
type RawCustomer struct {
	CustomerID *int64
	Country    string
	SignupDate string
	Email      string
}

// RawTransaction is one unvalidated transaction row.
type RawTransaction struct {
	TransactionID *int64
	CustomerID    *int64
	Amount        *float64
	Currency      string
	Timestamp     string
	Category      string
}

// header maps column names to positions and enforces the column contract.
type header struct {
	index map[string]int
}

func newHeader(record []string, required []string) (*header, error) {
	h := &header{index: make(map[string]int, len(record))}
	for i, name := range record {
		h.index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := h.index[name]; !ok {
			return nil, fmt.Errorf("schema violation: required column %q not found", name)
		}
	}
	return h, nil
}

func (h *header) get(record []string, name string) string {
	i, ok := h.index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseInt64 returns nil for empty or non-integer cells.
func parseInt64(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseFloat64 returns nil for empty or non-numeric cells.
func parseFloat64(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ReadCustomers reads a raw customer table. Extra columns are ignored, which
// lets the cleaned output be re-read as input.
func ReadCustomers(r io.Reader) ([]RawCustomer, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadCustomers: reading header: %w", err)
	}
	h, err := newHeader(head, []string{"customer_id", "country", "signup_date", "email"})
	if err != nil {
		return nil, fmt.Errorf("ReadCustomers: %w", err)
	}

	var rows []RawCustomer
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCustomers: reading record: %w", err)
		}
		rows = append(rows, RawCustomer{
			CustomerID: parseInt64(h.get(record, "customer_id")),
			Country:    h.get(record, "country"),
			SignupDate: h.get(record, "signup_date"),
			Email:      h.get(record, "email"),
		})
	}
	return rows, nil
}

// ReadTransactions reads a raw transaction table.
func ReadTransactions(r io.Reader) ([]RawTransaction, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: reading header: %w", err)
	}
	h, err := newHeader(head, []string{"transaction_id", "customer_id", "amount", "currency", "timestamp", "category"})
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: %w", err)
	}

	var rows []RawTransaction
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadTransactions: reading record: %w", err)
		}
		rows = append(rows, RawTransaction{
			TransactionID: parseInt64(h.get(record, "transaction_id")),
			CustomerID:    parseInt64(h.get(record, "customer_id")),
			Amount:        parseFloat64(h.get(record, "amount")),
			Currency:      h.get(record, "currency"),
			Timestamp:     h.get(record, "timestamp"),
			Category:      h.get(record, "category"),
		})
	}
	return rows, nil
}
