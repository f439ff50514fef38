package features

import (
	"context"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// Enrich left-joins customer master attributes (country, signup date, email)
// onto the feature table by customer_id. After orphan filtering every
// feature row has a matching customer; a missing match leaves the attribute
// fields zero-valued rather than dropping the row.
func Enrich(ctx context.Context, features []domain.CustomerFeatures, customers []domain.Customer) []domain.CustomerFeatures {
	log := logger.Stage(logger.FromContext(ctx), "enrich")

	byID := make(map[int64]domain.Customer, len(customers))
	for _, c := range customers {
		byID[c.CustomerID] = c
	}

	out := make([]domain.CustomerFeatures, len(features))
	unmatched := 0
	for i, f := range features {
		if c, ok := byID[f.CustomerID]; ok {
			f.Country = c.Country
			f.SignupDate = c.SignupDate
			f.Email = c.Email
		} else {
			unmatched++
		}
		out[i] = f
	}

	if unmatched > 0 {
		log.Warn().Int("unmatched", unmatched).Msg("feature rows without a customer record")
	}
	return out
}
