package etl

import (
	"context"
	"math"

	"github.com/dvloznov/nordic-pipeline/internal/config"
	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// InferCurrency fills the NA currency sentinel from the transaction's
// customer country using the country→currency table. It is a left-join plus
// conditional replace: the row count is preserved, and rows whose customer is
// unknown or whose country has no mapping keep the sentinel. Transactions
// that already carry a currency are untouched, which makes the operation
// idempotent.
func InferCurrency(ctx context.Context, txns []domain.Transaction, customers []domain.Customer, cfg config.Config) []domain.Transaction {
	log := logger.Stage(logger.FromContext(ctx), "infer_currency")

	countryByCustomer := make(map[int64]string, len(customers))
	for _, c := range customers {
		countryByCustomer[c.CustomerID] = c.Country
	}

	inferred := 0
	out := make([]domain.Transaction, len(txns))
	for i, t := range txns {
		if t.Currency == domain.SentinelNA {
			if country, ok := countryByCustomer[t.CustomerID]; ok {
				if currency, ok := cfg.CountryCurrency[country]; ok {
					t.Currency = currency
					inferred++
				}
			}
		}
		out[i] = t
	}

	if inferred > 0 {
		log.Info().Int("inferred", inferred).Msg("inferred currency from customer country")
	}
	return out
}

// ConvertAmounts adds the EUR-normalized amount to every transaction using
// the static conversion-rate table, rounded to 2 decimal places. A currency
// with no rate yields a nil AmountInEUR — a data-quality signal, not an
// error; downstream aggregates exclude nil amounts instead of counting them
// as zero.
func ConvertAmounts(ctx context.Context, txns []domain.Transaction, cfg config.Config) []domain.Transaction {
	log := logger.Stage(logger.FromContext(ctx), "convert_amounts")

	unmapped := 0
	out := make([]domain.Transaction, len(txns))
	for i, t := range txns {
		if rate, ok := cfg.ConversionRates[t.Currency]; ok {
			eur := round2(t.Amount * rate)
			t.AmountInEUR = &eur
		} else {
			t.AmountInEUR = nil
			unmapped++
		}
		out[i] = t
	}

	if unmapped > 0 {
		log.Warn().Int("unmapped", unmapped).Msg("transactions with no conversion rate; amount_in_eur left null")
	}
	log.Info().Int("rows", len(out)).Msg("added amount_in_eur")
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
