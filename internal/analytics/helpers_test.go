package analytics

import (
	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/reconcile"
)

func claim(id, npi, ndc, price, qty string) model.ClaimRecord {
	c := model.ClaimRecord{ID: id, NPI: npi, NDC: ndc, HasNDC: ndc != ""}
	c.Price = model.Text(price)
	c.Quantity = model.Text(qty)
	return c
}

func pharmacies(pairs ...string) *reconcile.PharmacySet {
	var records []model.Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r := model.NewRecord("test")
		r.Set("npi", model.Text(pairs[i]))
		if pairs[i+1] != "" {
			r.Set("chain", model.Text(pairs[i+1]))
		}
		records = append(records, r)
	}
	return reconcile.Pharmacies(records)
}

func reverts(ids ...string) reconcile.RevertSet {
	set := make(reconcile.RevertSet)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// scenarioClaims is two pharmacies filling the same drug at different prices.
func scenarioClaims() []model.ClaimRecord {
	return []model.ClaimRecord{
		claim("c1", "1", "D1", "100", "10"),
		claim("c2", "2", "D1", "50", "10"),
	}
}
