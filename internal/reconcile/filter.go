package reconcile

import (
	"github.com/sells-group/claims-cli/internal/model"
)

// Field names read from loaded records.
const (
	FieldNPI      = "npi"
	FieldChain    = "chain"
	FieldID       = "id"
	FieldNDC      = "ndc"
	FieldPrice    = "price"
	FieldQuantity = "quantity"
	FieldClaimID  = "claim_id"
)

// PharmacySet is the pharmacy directory indexed by npi. Duplicate npi values
// are kept; ByNPI holds every copy in load order.
type PharmacySet struct {
	Records    []model.PharmacyRecord
	ByNPI      map[string][]model.PharmacyRecord
	Duplicates int
}

// Known reports whether npi belongs to at least one pharmacy.
func (p *PharmacySet) Known(npi string) bool {
	_, ok := p.ByNPI[npi]
	return ok
}

// Pharmacies builds the pharmacy set, dropping records without an npi.
func Pharmacies(records []model.Record) *PharmacySet {
	set := &PharmacySet{ByNPI: make(map[string][]model.PharmacyRecord)}
	for _, rec := range records {
		npi, ok := rec.String(FieldNPI)
		if !ok {
			continue
		}
		chain, hasChain := rec.String(FieldChain)
		p := model.PharmacyRecord{NPI: npi, Chain: chain, HasChain: hasChain}

		if _, dup := set.ByNPI[npi]; dup {
			set.Duplicates++
		}
		set.Records = append(set.Records, p)
		set.ByNPI[npi] = append(set.ByNPI[npi], p)
	}
	return set
}

// Claims converts records to claims, dropping any without an npi or id.
// It returns the claims and the number dropped.
func Claims(records []model.Record) ([]model.ClaimRecord, int) {
	claims := make([]model.ClaimRecord, 0, len(records))
	dropped := 0
	for _, rec := range records {
		npi, okNPI := rec.String(FieldNPI)
		id, okID := rec.String(FieldID)
		if !okNPI || !okID {
			dropped++
			continue
		}
		ndc, hasNDC := rec.String(FieldNDC)
		c := model.ClaimRecord{ID: id, NPI: npi, NDC: ndc, HasNDC: hasNDC}
		c.Price = fieldOrNull(rec, FieldPrice)
		c.Quantity = fieldOrNull(rec, FieldQuantity)
		claims = append(claims, c)
	}
	return claims, dropped
}

func fieldOrNull(rec model.Record, key string) model.Value {
	if v, ok := rec.Get(key); ok {
		return v
	}
	return model.NullValue()
}

// RevertSet holds the ids of reversed claims.
type RevertSet map[string]struct{}

// Contains reports whether the claim id has been reverted.
func (s RevertSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Reverts builds the revert set from records carrying a claim_id.
func Reverts(records []model.Record) RevertSet {
	set := make(RevertSet, len(records))
	for _, rec := range records {
		if id, ok := rec.String(FieldClaimID); ok {
			set[id] = struct{}{}
		}
	}
	return set
}

// KnownPharmacies returns the claims whose npi is in the pharmacy set.
func KnownPharmacies(claims []model.ClaimRecord, pharmacies *PharmacySet) []model.ClaimRecord {
	out := make([]model.ClaimRecord, 0, len(claims))
	for _, c := range claims {
		if pharmacies.Known(c.NPI) {
			out = append(out, c)
		}
	}
	return out
}

// ExcludeReverted returns the claims whose id is not in the revert set.
func ExcludeReverted(claims []model.ClaimRecord, reverts RevertSet) []model.ClaimRecord {
	out := make([]model.ClaimRecord, 0, len(claims))
	for _, c := range claims {
		if !reverts.Contains(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

// PricedClaim is a claim with numeric price and quantity and its unit price.
type PricedClaim struct {
	model.ClaimRecord
	PriceValue    float64
	QuantityValue float64
	UnitPrice     float64
}

// DerivePrices coerces price and quantity, drops rows where either fails or
// quantity is not positive, and computes unit price.
func DerivePrices(claims []model.ClaimRecord) []PricedClaim {
	out := make([]PricedClaim, 0, len(claims))
	for _, c := range claims {
		price, ok := ParseNumber(c.Price)
		if !ok {
			continue
		}
		qty, ok := ParseNumber(c.Quantity)
		if !ok || qty <= 0 {
			continue
		}
		out = append(out, PricedClaim{
			ClaimRecord:   c,
			PriceValue:    price,
			QuantityValue: qty,
			UnitPrice:     price / qty,
		})
	}
	return out
}

// QuantityClaim is a claim with a numeric quantity. Zero and negative
// quantities are kept.
type QuantityClaim struct {
	model.ClaimRecord
	QuantityValue float64
}

// CoerceQuantities keeps the claims whose quantity coerces to a number.
func CoerceQuantities(claims []model.ClaimRecord) []QuantityClaim {
	out := make([]QuantityClaim, 0, len(claims))
	for _, c := range claims {
		qty, ok := ParseNumber(c.Quantity)
		if !ok {
			continue
		}
		out = append(out, QuantityClaim{ClaimRecord: c, QuantityValue: qty})
	}
	return out
}

// ClaimSets are the claim views shared by the analytics. None of the slices
// is modified after Build returns.
type ClaimSets struct {
	// All is every claim for a known pharmacy, reverted or not.
	All []model.ClaimRecord
	// Reverts is the set of reversed claim ids.
	Reverts RevertSet
	// Priced is All minus reverted claims, with valid price and positive quantity.
	Priced []PricedClaim
	// Quantities is All with a numeric quantity; reverts included.
	Quantities []QuantityClaim
}

// Build derives the shared claim sets from claims already filtered to known
// pharmacies.
func Build(claims []model.ClaimRecord, reverts RevertSet) *ClaimSets {
	return &ClaimSets{
		All:        claims,
		Reverts:    reverts,
		Priced:     DerivePrices(ExcludeReverted(claims, reverts)),
		Quantities: CoerceQuantities(claims),
	}
}
