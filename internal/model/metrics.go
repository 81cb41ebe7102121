package model

// FillMetric is one row of the per-(npi, ndc) fill report.
type FillMetric struct {
	NPI        string  `json:"npi" parquet:"npi"`
	NDC        string  `json:"ndc" parquet:"ndc"`
	Fills      int     `json:"fills" parquet:"fills"`
	Reverted   int     `json:"reverted" parquet:"reverted"`
	AvgPrice   float64 `json:"avg_price" parquet:"avg_price"`
	TotalPrice float64 `json:"total_price" parquet:"total_price"`
}

// ChainPrice is a chain's mean unit price for one drug.
type ChainPrice struct {
	Name     string  `json:"name"`
	AvgPrice float64 `json:"avg_price"`
}

// ChainRecommendation lists the cheapest chains for a drug, cheapest first.
type ChainRecommendation struct {
	NDC   string       `json:"ndc"`
	Chain []ChainPrice `json:"chain"`
}

// QuantityProfile lists the most frequently prescribed quantities for a
// drug, most frequent first.
type QuantityProfile struct {
	NDC                    string    `json:"ndc"`
	MostPrescribedQuantity []float64 `json:"most_prescribed_quantity"`
}

// Report bundles the three goal outputs of a run.
type Report struct {
	FillMetrics     []FillMetric
	Recommendations []ChainRecommendation
	Quantities      []QuantityProfile
}
