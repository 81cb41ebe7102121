package model

// PharmacyRecord is one entry of the pharmacy directory.
type PharmacyRecord struct {
	NPI      string `json:"npi"`
	Chain    string `json:"chain"`
	HasChain bool   `json:"-"`
}

// ClaimRecord is a single fill event. Price and Quantity keep their raw
// loaded form until a consumer coerces them.
type ClaimRecord struct {
	ID       string
	NPI      string
	NDC      string
	HasNDC   bool
	Price    Value
	Quantity Value
}

// GroupKey identifies a (pharmacy, drug) pair.
type GroupKey struct {
	NPI string
	NDC string
}
