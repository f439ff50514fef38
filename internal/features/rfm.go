// Package features derives the per-customer analytical feature table from
// cleaned, EUR-normalized transactions: RFM metrics, interevent-time
// statistics, categorical preferences and threshold-based business flags.
//
// Aggregation is inner-join-shaped: a customer with no retained transactions
// never appears in the output. Per-group results are independent; the two
// global scalars (the reference date and the high-value spend threshold) are
// reduced over the complete table before any row is compared against them.
package features

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// group collects one customer's transactions in cleaned-table order, which
// the stable mode tie-break depends on.
type group struct {
	customerID int64
	txns       []domain.Transaction
}

// ComputeRFM aggregates transactions into one feature row per customer.
//
// refDate anchors the recency computation; when nil it defaults to the
// calendar date of the maximum timestamp across the entire table. That
// default is a barrier: it is reduced over every row before any per-customer
// recency is derived.
//
// Monetary statistics cover only transactions with a non-nil AmountInEUR;
// the sum of an unpriced group is 0 but its mean/min/max are undefined.
// TransactionCount covers every retained transaction. Output rows are sorted
// by customer_id for reproducibility.
func ComputeRFM(ctx context.Context, txns []domain.Transaction, refDate *civil.Date) []domain.CustomerFeatures {
	log := logger.Stage(logger.FromContext(ctx), "compute_rfm")

	if len(txns) == 0 {
		log.Info().Msg("no transactions; empty feature table")
		return nil
	}

	reference := referenceDate(txns, refDate)

	// Group preserving cleaned-table order within each customer.
	index := make(map[int64]int)
	var groups []*group
	for _, t := range txns {
		i, ok := index[t.CustomerID]
		if !ok {
			i = len(groups)
			index[t.CustomerID] = i
			groups = append(groups, &group{customerID: t.CustomerID})
		}
		groups[i].txns = append(groups[i].txns, t)
	}

	features := make([]domain.CustomerFeatures, 0, len(groups))
	for _, g := range groups {
		features = append(features, aggregateGroup(g, reference))
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].CustomerID < features[j].CustomerID
	})

	log.Info().
		Int("customers", len(features)).
		Str("reference_date", reference.String()).
		Msg("computed RFM features")
	return features
}

// referenceDate resolves the recency anchor: the caller's override, or the
// date of the latest timestamp in the whole table.
func referenceDate(txns []domain.Transaction, override *civil.Date) civil.Date {
	if override != nil {
		return *override
	}
	maxTS := txns[0].Timestamp
	for _, t := range txns[1:] {
		if t.Timestamp.After(maxTS) {
			maxTS = t.Timestamp
		}
	}
	return civil.DateOf(maxTS)
}

func aggregateGroup(g *group, reference civil.Date) domain.CustomerFeatures {
	f := domain.CustomerFeatures{
		CustomerID:       g.customerID,
		TransactionCount: len(g.txns),
	}

	// Monetary, over priced transactions only.
	var amounts []float64
	for _, t := range g.txns {
		if t.AmountInEUR != nil {
			amounts = append(amounts, *t.AmountInEUR)
		}
	}
	if len(amounts) > 0 {
		var sum, min, max float64
		min, max = amounts[0], amounts[0]
		for _, a := range amounts {
			sum += a
			if a < min {
				min = a
			}
			if a > max {
				max = a
			}
		}
		f.TotalSpend = round2(sum)
		avg := round2(mean(amounts))
		f.AvgTransactionAmount = &avg
		if std := sampleStd(amounts); std != nil {
			rounded := round2(*std)
			f.StdTransactionAmount = &rounded
		}
		f.MinTransactionAmount = &min
		f.MaxTransactionAmount = &max
	}

	// Recency.
	first, last := g.txns[0].Timestamp, g.txns[0].Timestamp
	for _, t := range g.txns[1:] {
		if t.Timestamp.Before(first) {
			first = t.Timestamp
		}
		if t.Timestamp.After(last) {
			last = t.Timestamp
		}
	}
	f.FirstTransactionDate = first
	f.LastTransactionDate = last
	f.DaysSinceLastTransaction = reference.DaysSince(civil.DateOf(last))
	f.CustomerTenureDays = civil.DateOf(last).DaysSince(civil.DateOf(first))

	// Interevent cadence: whole-day deltas between timestamp-consecutive
	// transactions. The first transaction has no predecessor and
	// contributes no sample.
	if deltas := intereventDeltas(g.txns); len(deltas) > 0 {
		m := mean(deltas)
		f.MeanInterEventDays = &m
		f.StdInterEventDays = sampleStd(deltas)
	}

	// Preferences, in cleaned-table order for the tie-break.
	categories := make([]string, len(g.txns))
	currencies := make([]string, len(g.txns))
	for i, t := range g.txns {
		categories[i] = t.Category
		currencies[i] = t.Currency
	}
	f.PreferredCategory = stableMode(categories)
	f.PreferredCurrency = stableMode(currencies)

	return f
}

// intereventDeltas sorts a customer's transactions by timestamp ascending and
// returns the whole-day difference between each transaction and its
// predecessor (duration truncated to days, not calendar-date subtraction).
func intereventDeltas(txns []domain.Transaction) []float64 {
	if len(txns) < 2 {
		return nil
	}
	ordered := make([]domain.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	deltas := make([]float64, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		d := ordered[i].Timestamp.Sub(ordered[i-1].Timestamp)
		deltas = append(deltas, float64(int64(d/(24*time.Hour))))
	}
	return deltas
}
