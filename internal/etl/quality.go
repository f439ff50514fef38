package etl

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
)

// CustomerQuality summarizes a cleaned customer table for observability.
type CustomerQuality struct {
	TotalCustomers  int
	Countries       []string // sorted
	CountryCounts   map[string]int
	SignupDateMin   civil.Date
	SignupDateMax   civil.Date
	DuplicateEmails int
}

// TransactionQuality summarizes a cleaned transaction table.
type TransactionQuality struct {
	TotalTransactions int
	UniqueCustomers   int
	Currencies        []string // sorted
	CurrencyCounts    map[string]int
	Categories        []string // sorted
	CategoryCounts    map[string]int
	AmountMin         float64
	AmountMax         float64
	AmountMean        float64
	TimestampMin      time.Time
	TimestampMax      time.Time
	NACurrencyCount   int
	NACategoryCount   int
}

// ValidateCustomers computes quality metrics over a cleaned customer table.
func ValidateCustomers(customers []domain.Customer) CustomerQuality {
	q := CustomerQuality{
		TotalCustomers: len(customers),
		CountryCounts:  make(map[string]int),
	}

	emails := make(map[string]bool, len(customers))
	for i, c := range customers {
		q.CountryCounts[c.Country]++
		if i == 0 || c.SignupDate.Before(q.SignupDateMin) {
			q.SignupDateMin = c.SignupDate
		}
		if i == 0 || c.SignupDate.After(q.SignupDateMax) {
			q.SignupDateMax = c.SignupDate
		}
		if emails[c.Email] {
			q.DuplicateEmails++
		}
		emails[c.Email] = true
	}

	q.Countries = sortedKeys(q.CountryCounts)
	return q
}

// ValidateTransactions computes quality metrics over a cleaned transaction
// table, including the NA sentinel counts the currency resolver reports on.
func ValidateTransactions(txns []domain.Transaction) TransactionQuality {
	q := TransactionQuality{
		TotalTransactions: len(txns),
		CurrencyCounts:    make(map[string]int),
		CategoryCounts:    make(map[string]int),
	}

	customers := make(map[int64]bool, len(txns))
	var amountSum float64
	for i, t := range txns {
		customers[t.CustomerID] = true
		q.CurrencyCounts[t.Currency]++
		q.CategoryCounts[t.Category]++
		if t.Currency == domain.SentinelNA {
			q.NACurrencyCount++
		}
		if t.Category == domain.SentinelNA {
			q.NACategoryCount++
		}
		amountSum += t.Amount
		if i == 0 || t.Amount < q.AmountMin {
			q.AmountMin = t.Amount
		}
		if i == 0 || t.Amount > q.AmountMax {
			q.AmountMax = t.Amount
		}
		if i == 0 || t.Timestamp.Before(q.TimestampMin) {
			q.TimestampMin = t.Timestamp
		}
		if i == 0 || t.Timestamp.After(q.TimestampMax) {
			q.TimestampMax = t.Timestamp
		}
	}

	q.UniqueCustomers = len(customers)
	if len(txns) > 0 {
		q.AmountMean = round2(amountSum / float64(len(txns)))
	}
	q.Currencies = sortedKeys(q.CurrencyCounts)
	q.Categories = sortedKeys(q.CategoryCounts)
	return q
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
