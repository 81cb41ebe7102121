package analytics

import (
	"sort"

	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/reconcile"
)

type chainKey struct {
	ndc   string
	chain string
}

type meanAcc struct {
	sum float64
	n   int
}

// ChainRecommendations ranks pharmacy chains per drug by mean unit price and
// keeps the cheapest top chains. Averages are rounded to two decimals before
// ranking; equal averages are ordered by chain name. A claim whose npi is
// shared by several pharmacies counts once for each of them. Drugs without a
// priced claim at a chained pharmacy are omitted.
func ChainRecommendations(priced []reconcile.PricedClaim, pharmacies *reconcile.PharmacySet, top int) []model.ChainRecommendation {
	if top <= 0 {
		top = DefaultTopChains
	}

	groups := make(map[chainKey]*meanAcc)
	for _, c := range priced {
		if !c.HasNDC {
			continue
		}
		for _, p := range pharmacies.ByNPI[c.NPI] {
			if !p.HasChain {
				continue
			}
			key := chainKey{ndc: c.NDC, chain: p.Chain}
			acc, ok := groups[key]
			if !ok {
				acc = &meanAcc{}
				groups[key] = acc
			}
			acc.sum += c.UnitPrice
			acc.n++
		}
	}

	byNDC := make(map[string][]model.ChainPrice)
	for k, acc := range groups {
		byNDC[k.ndc] = append(byNDC[k.ndc], model.ChainPrice{
			Name:     k.chain,
			AvgPrice: reconcile.Round2(acc.sum / float64(acc.n)),
		})
	}

	out := make([]model.ChainRecommendation, 0, len(byNDC))
	for _, ndc := range sortedKeys(byNDC) {
		chains := byNDC[ndc]
		sort.Slice(chains, func(i, j int) bool {
			if chains[i].AvgPrice != chains[j].AvgPrice {
				return chains[i].AvgPrice < chains[j].AvgPrice
			}
			return chains[i].Name < chains[j].Name
		})
		if len(chains) > top {
			chains = chains[:top]
		}
		out = append(out, model.ChainRecommendation{NDC: ndc, Chain: chains})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
