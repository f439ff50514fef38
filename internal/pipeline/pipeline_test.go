package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

const rawCustomersCSV = `customer_id,country,signup_date,email
1,dk,2024-01-01,ANNA@Example.dk
2,FI,2024-02-01,teemu@example.fi
3,DE,2024-01-15,hans@example.de
,SE,2024-01-20,missing@example.se
`

const rawTransactionsCSV = `transaction_id,customer_id,amount,currency,timestamp,category
1,1,100,DKK,2024-03-01 10:00:00,groceries
2,1,100,dkk,2024-03-10 10:00:00,Groceries
3,2,50,,2024-03-05 12:00:00,electronics
4,99,10,EUR,2024-03-02 09:00:00,travel
1,1,100,DKK,2024-03-01 10:00:00,groceries
5,1,-5,DKK,2024-03-03 08:00:00,groceries
`

func testCtx() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func writeInputs(t *testing.T, dir string) (customersPath, transactionsPath string) {
	t.Helper()
	customersPath = filepath.Join(dir, "customers.csv")
	transactionsPath = filepath.Join(dir, "transactions.csv")
	if err := os.WriteFile(customersPath, []byte(rawCustomersCSV), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(transactionsPath, []byte(rawTransactionsCSV), 0644); err != nil {
		t.Fatal(err)
	}
	return customersPath, transactionsPath
}

func TestBatchPipeline(t *testing.T) {
	dir := t.TempDir()
	customersPath, transactionsPath := writeInputs(t, dir)

	outputDir := filepath.Join(dir, "out")
	state := NewState(config.Default(), customersPath, transactionsPath, outputDir)

	if err := NewBatchPipeline().Execute(testCtx(), state); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	// Cleaning: customer 3 has an invalid country, one row has no id.
	if got := state.Report.CustomerClean; got.OutputRows != 2 || got.Removed != 2 {
		t.Errorf("customer clean stats = %+v, want 2 output, 2 removed", got)
	}
	// Transactions: one duplicate id, one non-positive amount, one orphan
	// removed after cleaning.
	if got := state.Report.TransactionClean; got.OutputRows != 4 || got.Duplicates != 1 || got.Removed != 1 {
		t.Errorf("transaction clean stats = %+v, want 4 output, 1 dup, 1 removed", got)
	}
	if len(state.Transactions) != 3 {
		t.Fatalf("got %d transactions after orphan removal, want 3", len(state.Transactions))
	}

	if len(state.Features) != 2 {
		t.Fatalf("got %d feature rows, want 2", len(state.Features))
	}

	// Customer 1: two 100 DKK transactions nine days apart.
	f := state.Features[0]
	if f.CustomerID != 1 {
		t.Fatalf("first feature row is customer %d, want 1 (sorted by id)", f.CustomerID)
	}
	if f.TotalSpend != 26.80 {
		t.Errorf("customer 1 total spend = %v, want 26.80", f.TotalSpend)
	}
	if f.AvgTransactionAmount == nil || *f.AvgTransactionAmount != 13.40 {
		t.Errorf("customer 1 avg = %v, want 13.40", f.AvgTransactionAmount)
	}
	if f.TransactionCount != 2 {
		t.Errorf("customer 1 count = %d, want 2", f.TransactionCount)
	}
	if f.CustomerTenureDays != 9 {
		t.Errorf("customer 1 tenure = %d, want 9", f.CustomerTenureDays)
	}
	if f.DaysSinceLastTransaction != 0 {
		t.Errorf("customer 1 recency = %d, want 0 (owns the reference date)", f.DaysSinceLastTransaction)
	}
	if f.MeanInterEventDays == nil || *f.MeanInterEventDays != 9 {
		t.Errorf("customer 1 mean interevent = %v, want 9", f.MeanInterEventDays)
	}
	if f.StdInterEventDays != nil {
		t.Errorf("customer 1 interevent std should be undefined with one gap, got %v", *f.StdInterEventDays)
	}
	if f.Country != "DK" || f.Email != "anna@example.dk" {
		t.Errorf("customer 1 enrichment = %q/%q, want DK/anna@example.dk", f.Country, f.Email)
	}
	if f.PreferredCurrency != "DKK" || f.PreferredCategory != "groceries" {
		t.Errorf("customer 1 preferences = %q/%q", f.PreferredCurrency, f.PreferredCategory)
	}

	// Customer 2: a single transaction with the currency inferred from FI.
	f = state.Features[1]
	if f.CustomerID != 2 {
		t.Fatalf("second feature row is customer %d, want 2", f.CustomerID)
	}
	if f.TotalSpend != 50.00 {
		t.Errorf("customer 2 total spend = %v, want 50.00 (inferred EUR)", f.TotalSpend)
	}
	if f.PreferredCurrency != "EUR" {
		t.Errorf("customer 2 preferred currency = %q, want inferred EUR", f.PreferredCurrency)
	}
	if !f.HasSingleTransaction {
		t.Error("customer 2 should be flagged single-transaction")
	}
	if f.StdTransactionAmount != nil {
		t.Errorf("customer 2 amount std should be undefined, got %v", *f.StdTransactionAmount)
	}
	if f.DaysSinceLastTransaction != 5 {
		t.Errorf("customer 2 recency = %d, want 5", f.DaysSinceLastTransaction)
	}
	// Spend quantile cutoff at p80 of {26.80, 50.00} is 45.36.
	if !f.IsHighValue || state.Features[0].IsHighValue {
		t.Error("only customer 2 should be high-value")
	}

	// All three output files exist and are recorded in the report.
	if len(state.Report.OutputFiles) != 3 {
		t.Fatalf("got %d output files, want 3", len(state.Report.OutputFiles))
	}
	for _, file := range state.Report.OutputFiles {
		if _, err := os.Stat(file); err != nil {
			t.Errorf("missing output file %s: %v", file, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outputDir, FeaturesFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("feature file has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.Contains(lines[1], ",26.80,13.40,0.00,") {
		t.Errorf("customer 1 monetary columns not serialized with 2 decimals: %s", lines[1])
	}

	if state.Report.Summary.TotalCustomers != 2 || state.Report.Summary.SingleTransactionCustomers != 1 {
		t.Errorf("summary = %+v, want 2 customers, 1 single-transaction", state.Report.Summary)
	}
}

// Running the cleaning pipeline over its own output must reproduce the output
// byte for byte.
func TestCleaningIdempotence(t *testing.T) {
	dir := t.TempDir()
	customersPath, transactionsPath := writeInputs(t, dir)

	firstOut := filepath.Join(dir, "first")
	state := NewState(config.Default(), customersPath, transactionsPath, firstOut)
	if err := NewCleaningPipeline().Execute(testCtx(), state); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	secondOut := filepath.Join(dir, "second")
	state = NewState(config.Default(),
		filepath.Join(firstOut, CleanedCustomersFile),
		filepath.Join(firstOut, CleanedTransactionsFile),
		secondOut)
	if err := NewCleaningPipeline().Execute(testCtx(), state); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	for _, name := range []string{CleanedCustomersFile, CleanedTransactionsFile} {
		first, err := os.ReadFile(filepath.Join(firstOut, name))
		if err != nil {
			t.Fatal(err)
		}
		second, err := os.ReadFile(filepath.Join(secondOut, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(first) != string(second) {
			t.Errorf("%s not idempotent:\nfirst:\n%s\nsecond:\n%s", name, first, second)
		}
	}
}

type recordingStorage struct {
	uploads []string
}

func (r *recordingStorage) UploadFile(ctx context.Context, bucket, object, file string) error {
	r.uploads = append(r.uploads, bucket+"/"+object)
	return nil
}

func (r *recordingStorage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func TestPublishOutputs(t *testing.T) {
	dir := t.TempDir()
	customersPath, transactionsPath := writeInputs(t, dir)

	storage := &recordingStorage{}
	state := NewState(config.Default(), customersPath, transactionsPath, filepath.Join(dir, "out"))
	state.Storage = storage
	state.PublishBucket = "analytics-outputs"

	if err := NewBatchPipeline().Execute(testCtx(), state); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(storage.uploads) != 3 {
		t.Fatalf("got %d uploads, want 3: %v", len(storage.uploads), storage.uploads)
	}
	want := "analytics-outputs/runs/" + state.RunID + "/" + FeaturesFile
	found := false
	for _, u := range storage.uploads {
		if u == want {
			found = true
		}
	}
	if !found {
		t.Errorf("feature table not published under run prefix: %v", storage.uploads)
	}
}

func TestPublishSkippedWithoutBucket(t *testing.T) {
	storage := &recordingStorage{}
	state := &State{Storage: storage}
	if err := (&PublishOutputsStep{}).Execute(testCtx(), state); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(storage.uploads) != 0 {
		t.Errorf("uploads happened without a publish bucket: %v", storage.uploads)
	}
}
