package features

import (
	"context"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// ApplyFlags derives the behavioral flags from the aggregated features. It
// is a pure function of the feature table and the thresholds in cfg:
//
//   - is_high_value: total_spend at or above the population quantile at
//     cfg.HighValuePercentile, recomputed for every run. The threshold is
//     reduced over the complete table before any row is classified.
//   - is_churning: days_since_last_transaction at or above cfg.ChurnDays.
//   - is_churning_2: days_since_last_transaction strictly above
//     mean + z·std of the customer's own interevent times. Customers with
//     too little history for the interevent statistics are never flagged.
//   - has_single_transaction: exactly one retained transaction.
func ApplyFlags(ctx context.Context, features []domain.CustomerFeatures, cfg config.Config) []domain.CustomerFeatures {
	log := logger.Stage(logger.FromContext(ctx), "apply_flags")

	if len(features) == 0 {
		return features
	}

	spends := make([]float64, len(features))
	for i, f := range features {
		spends[i] = f.TotalSpend
	}
	threshold := quantileLinear(spends, cfg.HighValuePercentile)

	out := make([]domain.CustomerFeatures, len(features))
	for i, f := range features {
		f.IsHighValue = f.TotalSpend >= threshold
		f.IsChurning = f.DaysSinceLastTransaction >= cfg.ChurnDays
		f.IsChurning2 = false
		if f.MeanInterEventDays != nil && f.StdInterEventDays != nil {
			cutoff := *f.MeanInterEventDays + cfg.ChurnZScoreThreshold**f.StdInterEventDays
			f.IsChurning2 = float64(f.DaysSinceLastTransaction) > cutoff
		}
		f.HasSingleTransaction = f.TransactionCount == 1
		out[i] = f
	}

	log.Info().
		Float64("high_value_threshold", threshold).
		Int("customers", len(out)).
		Msg("applied business flags")
	return out
}
