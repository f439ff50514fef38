package features

import (
	"context"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// Summary holds run-level descriptive statistics over the feature table.
type Summary struct {
	TotalCustomers             int
	HighValueCustomers         int
	ChurningCustomers          int
	ChurningCustomersZScore    int
	SingleTransactionCustomers int

	TotalSpendMin    float64
	TotalSpendMax    float64
	TotalSpendMean   float64
	TotalSpendMedian float64

	TransactionCountMin  int
	TransactionCountMax  int
	TransactionCountMean float64

	AvgDaysSinceLastTransaction float64
}

// Summarize computes the run summary for the completed feature table.
func Summarize(features []domain.CustomerFeatures) Summary {
	s := Summary{TotalCustomers: len(features)}
	if len(features) == 0 {
		return s
	}

	spends := make([]float64, len(features))
	var countSum, recencySum float64
	for i, f := range features {
		spends[i] = f.TotalSpend
		if f.IsHighValue {
			s.HighValueCustomers++
		}
		if f.IsChurning {
			s.ChurningCustomers++
		}
		if f.IsChurning2 {
			s.ChurningCustomersZScore++
		}
		if f.HasSingleTransaction {
			s.SingleTransactionCustomers++
		}
		if i == 0 || f.TransactionCount < s.TransactionCountMin {
			s.TransactionCountMin = f.TransactionCount
		}
		if i == 0 || f.TransactionCount > s.TransactionCountMax {
			s.TransactionCountMax = f.TransactionCount
		}
		countSum += float64(f.TransactionCount)
		recencySum += float64(f.DaysSinceLastTransaction)
	}

	s.TotalSpendMin, s.TotalSpendMax = spends[0], spends[0]
	for _, v := range spends {
		if v < s.TotalSpendMin {
			s.TotalSpendMin = v
		}
		if v > s.TotalSpendMax {
			s.TotalSpendMax = v
		}
	}
	s.TotalSpendMean = round2(mean(spends))
	s.TotalSpendMedian = round2(quantileLinear(spends, 0.5))
	s.TransactionCountMean = round2(countSum / float64(len(features)))
	s.AvgDaysSinceLastTransaction = round2(recencySum / float64(len(features)))

	return s
}

// Log emits the summary as a single structured event, the run's headline
// observability record.
func (s Summary) Log(ctx context.Context) {
	log := logger.Stage(logger.FromContext(ctx), "summary")
	log.Info().
		Int("total_customers", s.TotalCustomers).
		Int("high_value_customers", s.HighValueCustomers).
		Int("churning_customers", s.ChurningCustomers).
		Int("churning_customers_z_score", s.ChurningCustomersZScore).
		Int("single_transaction_customers", s.SingleTransactionCustomers).
		Float64("avg_days_since_last_transaction", s.AvgDaysSinceLastTransaction).
		Msg("feature summary")
}
