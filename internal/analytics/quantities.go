package analytics

import (
	"sort"

	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/reconcile"
)

type quantityCount struct {
	quantity float64
	count    int
}

// CommonQuantities returns, per drug, the most frequently prescribed
// quantities, most frequent first. Equal frequencies are ordered by
// quantity ascending. Reverted claims and non-positive quantities count.
func CommonQuantities(claims []reconcile.QuantityClaim, top int) []model.QuantityProfile {
	if top <= 0 {
		top = DefaultTopQuantities
	}

	counts := make(map[string]map[float64]int)
	for _, c := range claims {
		if !c.HasNDC {
			continue
		}
		q := c.QuantityValue
		if q == 0 {
			q = 0 // fold -0 into 0
		}
		perDrug, ok := counts[c.NDC]
		if !ok {
			perDrug = make(map[float64]int)
			counts[c.NDC] = perDrug
		}
		perDrug[q]++
	}

	out := make([]model.QuantityProfile, 0, len(counts))
	for _, ndc := range sortedKeys(counts) {
		ranked := make([]quantityCount, 0, len(counts[ndc]))
		for q, n := range counts[ndc] {
			ranked = append(ranked, quantityCount{quantity: q, count: n})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].count != ranked[j].count {
				return ranked[i].count > ranked[j].count
			}
			return ranked[i].quantity < ranked[j].quantity
		})
		if len(ranked) > top {
			ranked = ranked[:top]
		}

		qs := make([]float64, len(ranked))
		for i, r := range ranked {
			qs[i] = r.quantity
		}
		out = append(out, model.QuantityProfile{NDC: ndc, MostPrescribedQuantity: qs})
	}
	return out
}
