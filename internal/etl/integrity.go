package etl

import (
	"context"

	"github.com/dvloznov/nordic-pipeline/internal/domain"
	"github.com/dvloznov/nordic-pipeline/internal/logger"
)

// RemoveOrphans drops transactions whose customer_id references no cleaned
// customer. Runs after currency inference (which needs the full join) and
// before aggregation, so orphan rows never contribute to any feature.
func RemoveOrphans(ctx context.Context, txns []domain.Transaction, customers []domain.Customer) []domain.Transaction {
	log := logger.Stage(logger.FromContext(ctx), "remove_orphans")

	valid := make(map[int64]bool, len(customers))
	for _, c := range customers {
		valid[c.CustomerID] = true
	}

	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if valid[t.CustomerID] {
			out = append(out, t)
		}
	}

	if removed := len(txns) - len(out); removed > 0 {
		log.Warn().Int("removed", removed).Msg("transactions reference non-existent customers; removed")
	}
	return out
}
