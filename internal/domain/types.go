package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// SentinelNA marks an unknown currency or category. It exists only in
// normalized string columns; numeric columns use nil pointers instead so the
// sentinel can never leak into arithmetic.
const SentinelNA = "NA"

// Customer is one cleaned customer master record.
type Customer struct {
	CustomerID int64
	Country    string // uppercase ISO-like Nordic code
	SignupDate civil.Date
	Email      string // lowercased
}

// Transaction is one cleaned transaction record.
//
// Currency and Category are normalized (uppercase / lowercase) and carry
// SentinelNA when the source value was missing. AmountInEUR is nil until the
// conversion stage runs, and stays nil when the currency has no conversion
// rate; aggregates must skip nil amounts rather than treating them as zero.
type Transaction struct {
	TransactionID int64
	CustomerID    int64
	Amount        float64 // in original currency, always > 0 after cleaning
	Currency      string
	Category      string
	Timestamp     time.Time
	AmountInEUR   *float64
}

// CustomerFeatures is the terminal per-customer analytics record. One row
// exists per customer with at least one retained transaction.
//
// Pointer-typed statistics are undefined (not zero) when the sample is too
// small: StdTransactionAmount needs 2 priced transactions, MeanInterEventDays
// needs 2 transactions, StdInterEventDays needs 3. Avg/Min/Max are undefined
// when no transaction had a convertible currency.
type CustomerFeatures struct {
	CustomerID int64

	// Attributes joined in by the enricher.
	Email      string
	Country    string
	SignupDate civil.Date

	// Monetary, in EUR.
	TotalSpend           float64
	AvgTransactionAmount *float64
	StdTransactionAmount *float64
	MinTransactionAmount *float64
	MaxTransactionAmount *float64

	// Frequency. Counts every retained transaction, priced or not.
	TransactionCount int

	// Recency.
	FirstTransactionDate     time.Time
	LastTransactionDate      time.Time
	DaysSinceLastTransaction int
	CustomerTenureDays       int

	// Interevent cadence, in whole days.
	MeanInterEventDays *float64
	StdInterEventDays  *float64

	// Preferences: most frequent value, first-encountered wins ties.
	PreferredCategory string
	PreferredCurrency string

	// Behavioral flags.
	IsHighValue          bool
	IsChurning           bool
	IsChurning2          bool
	HasSingleTransaction bool
}
