package analytics

import (
	"sort"

	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/reconcile"
)

type fillAcc struct {
	fills    int
	reverted int
	priced   int
	unitSum  float64
	priceSum float64
}

// FillMetrics returns one row per (npi, ndc) pair with at least one fill.
// Fills and reverts are counted over every claim; average unit price and
// total price use only unreverted claims with a valid price and positive
// quantity, and are zero when no such claim exists. Claims without an ndc
// form no group.
func FillMetrics(sets *reconcile.ClaimSets) []model.FillMetric {
	groups := make(map[model.GroupKey]*fillAcc)

	for _, c := range sets.All {
		if !c.HasNDC {
			continue
		}
		key := model.GroupKey{NPI: c.NPI, NDC: c.NDC}
		acc, ok := groups[key]
		if !ok {
			acc = &fillAcc{}
			groups[key] = acc
		}
		acc.fills++
		if sets.Reverts.Contains(c.ID) {
			acc.reverted++
		}
	}

	for _, c := range sets.Priced {
		if !c.HasNDC {
			continue
		}
		acc, ok := groups[model.GroupKey{NPI: c.NPI, NDC: c.NDC}]
		if !ok {
			continue
		}
		acc.priced++
		acc.unitSum += c.UnitPrice
		acc.priceSum += c.PriceValue
	}

	keys := make([]model.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].NPI != keys[j].NPI {
			return keys[i].NPI < keys[j].NPI
		}
		return keys[i].NDC < keys[j].NDC
	})

	out := make([]model.FillMetric, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		m := model.FillMetric{
			NPI:      k.NPI,
			NDC:      k.NDC,
			Fills:    acc.fills,
			Reverted: acc.reverted,
		}
		if acc.priced > 0 {
			m.AvgPrice = reconcile.Round2(acc.unitSum / float64(acc.priced))
			m.TotalPrice = reconcile.Round2(acc.priceSum)
		}
		out = append(out, m)
	}
	return out
}
