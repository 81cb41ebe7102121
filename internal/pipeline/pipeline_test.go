package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-cli/internal/loader"
	"github.com/sells-group/claims-cli/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type fixture struct {
	pharmacy, claims, reverts string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		pharmacy: filepath.Join(root, "pharmacies"),
		claims:   filepath.Join(root, "claims"),
		reverts:  filepath.Join(root, "reverts"),
	}
	for _, d := range []string{f.pharmacy, f.claims, f.reverts} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	return f
}

func (f fixture) inputs() Inputs {
	return Inputs{
		PharmacyDirs: []string{f.pharmacy},
		ClaimsDirs:   []string{f.claims},
		RevertsDirs:  []string{f.reverts},
	}
}

type recordingRecorder struct {
	mu      sync.Mutex
	loads   map[string]int
	dropped map[string]int
	rows    map[string]int
	phases  []string
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{loads: map[string]int{}, dropped: map[string]int{}, rows: map[string]int{}}
}

func (r *recordingRecorder) RecordLoad(c string, _, _, records int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads[c] = records
}

func (r *recordingRecorder) RecordDropped(reason string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped[reason] = n
}

func (r *recordingRecorder) RecordRows(goal string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[goal] = n
}

func (r *recordingRecorder) RecordPhase(phase string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
}

func TestRun_Scenario(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "pharmacies.csv", "npi,chain\n1,A\n2,B\n")
	writeFile(t, f.claims, "claims.json", `[
		{"id":"c1","npi":"1","ndc":"D1","price":100,"quantity":10},
		{"id":"c2","npi":"2","ndc":"D1","price":50,"quantity":10}
	]`)
	writeFile(t, f.reverts, "reverts.json", `[]`)

	rec := newRecordingRecorder()
	res, err := New(Options{}, rec).Run(context.Background(), f.inputs())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []model.FillMetric{
		{NPI: "1", NDC: "D1", Fills: 1, AvgPrice: 10, TotalPrice: 100},
		{NPI: "2", NDC: "D1", Fills: 1, AvgPrice: 5, TotalPrice: 50},
	}, res.FillMetrics)
	assert.Equal(t, []model.ChainRecommendation{
		{NDC: "D1", Chain: []model.ChainPrice{{Name: "B", AvgPrice: 5}, {Name: "A", AvgPrice: 10}}},
	}, res.Recommendations)
	assert.Equal(t, []model.QuantityProfile{
		{NDC: "D1", MostPrescribedQuantity: []float64{10}},
	}, res.Quantities)

	assert.Equal(t, 2, rec.loads[CollectionPharmacy])
	assert.Equal(t, 2, rec.rows["goal_2"])
	assert.Equal(t, []string{"load", "reconcile", "analytics"}, rec.phases)
	require.Len(t, res.Phases, 3)
}

func TestRun_RevertedClaim(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "p.json", `[{"npi":"1","chain":"A"},{"npi":"2","chain":"B"}]`)
	writeFile(t, f.claims, "c.csv", "id,npi,ndc,price,quantity\nc1,1,D1,100,10\nc2,2,D1,50,10\n")
	writeFile(t, f.reverts, "r.csv", "claim_id\nc1\n")

	res, err := New(Options{}, nil).Run(context.Background(), f.inputs())
	require.NoError(t, err)

	assert.Equal(t, model.FillMetric{NPI: "1", NDC: "D1", Fills: 1, Reverted: 1}, res.FillMetrics[0])
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, []model.ChainPrice{{Name: "B", AvgPrice: 5}}, res.Recommendations[0].Chain)
	assert.Equal(t, 1, res.Stats.Reverts)
	assert.Equal(t, 1, res.Stats.PricedClaims)
	assert.Equal(t, 2, res.Stats.QuantityClaims)
}

func TestRun_UnknownPharmacyAndMissingIDsDropped(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "p.csv", "npi,chain\n00123,A\n")
	writeFile(t, f.claims, "c.csv", "id,npi,ndc,price,quantity\nc1,00123,D1,10,1\nc2,123,D1,10,1\n,00123,D1,10,1\n")

	rec := newRecordingRecorder()
	res, err := New(Options{}, rec).Run(context.Background(), f.inputs())
	require.NoError(t, err)

	require.Len(t, res.FillMetrics, 1)
	assert.Equal(t, "00123", res.FillMetrics[0].NPI)
	assert.Equal(t, 1, res.Stats.ClaimsMissingIDs)
	assert.Equal(t, 1, res.Stats.ClaimsUnknownPharmacy)
	assert.Equal(t, 1, rec.dropped["unknown_pharmacy"])
}

func TestRun_FatalConditions(t *testing.T) {
	tests := []struct {
		name     string
		pharmacy string
		claims   string
		want     error
	}{
		{"no pharmacy files", "", `[{"id":"c1","npi":"1"}]`, ErrNoPharmacies},
		{"pharmacy lacks npi", `[{"chain":"A"}]`, `[{"id":"c1","npi":"1"}]`, ErrNoPharmacies},
		{"no claim files", `[{"npi":"1","chain":"A"}]`, "", ErrNoClaims},
		{"claims lack npi", `[{"npi":"1","chain":"A"}]`, `[{"id":"c1"}]`, ErrNoClaims},
		{"claims lack id", `[{"npi":"1","chain":"A"}]`, `[{"npi":"1"}]`, ErrNoClaims},
		{"no matching claims", `[{"npi":"1","chain":"A"}]`, `[{"id":"c1","npi":"9"}]`, ErrNoWork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.pharmacy != "" {
				writeFile(t, f.pharmacy, "p.json", tt.pharmacy)
			}
			if tt.claims != "" {
				writeFile(t, f.claims, "c.json", tt.claims)
			}

			res, err := New(Options{}, nil).Run(context.Background(), f.inputs())
			assert.Nil(t, res)
			assert.True(t, eris.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRun_MissingDirectoriesAreNotFatal(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "p.json", `{"npi":"1","chain":"A"}`)
	writeFile(t, f.claims, "c.json", `{"id":"c1","npi":"1","ndc":"D1","price":"9","quantity":"3"}`)

	in := f.inputs()
	in.RevertsDirs = append(in.RevertsDirs, filepath.Join(f.reverts, "missing"))
	in.ClaimsDirs = append(in.ClaimsDirs, filepath.Join(f.claims, "missing"))

	res, err := New(Options{}, nil).Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.FillMetrics, 1)
	assert.Equal(t, 3.0, res.FillMetrics[0].AvgPrice)
}

func TestRun_TopNOptions(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "p.csv", "npi,chain\n1,A\n2,B\n3,C\n")
	writeFile(t, f.claims, "c.csv", "id,npi,ndc,price,quantity\nc1,1,D1,1,1\nc2,2,D1,2,2\nc3,3,D1,9,3\n")

	res, err := New(Options{TopChains: 1, TopQuantities: 2}, nil).Run(context.Background(), f.inputs())
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Len(t, res.Recommendations[0].Chain, 1)
	assert.Len(t, res.Quantities[0].MostPrescribedQuantity, 2)
}

func TestRun_Aliases(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "p.csv", "NPI,Chain\n1,A\n")
	writeFile(t, f.claims, "c.json", `[{"claim":"c1","NPI":"1","ndc":"D1","price":"10","quantity":"2"}]`)

	opts := Options{Loader: loader.Options{Aliases: loader.Aliases{
		"npi":   {"NPI"},
		"chain": {"Chain"},
		"id":    {"claim"},
	}}}
	res, err := New(opts, nil).Run(context.Background(), f.inputs())
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "A", res.Recommendations[0].Chain[0].Name)
}

func TestRun_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "p.json", `{"npi":"1","chain":"A"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}, nil).Run(ctx, f.inputs())
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrNoPharmacies))
}

// cancelAfterLoad cancels the run once the last collection has loaded.
type cancelAfterLoad struct {
	*recordingRecorder
	cancel context.CancelFunc
}

func (c cancelAfterLoad) RecordLoad(collection string, files, skipped, records int) {
	c.recordingRecorder.RecordLoad(collection, files, skipped, records)
	if collection == CollectionReverts {
		c.cancel()
	}
}

func TestRun_CancelledDuringReconcile(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.pharmacy, "pharmacies.csv", "npi,chain\n1,A\n")
	writeFile(t, f.claims, "claims.json", `[{"id":"c1","npi":"1","ndc":"D1","price":10,"quantity":1}]`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := cancelAfterLoad{recordingRecorder: newRecordingRecorder(), cancel: cancel}

	res, err := New(Options{}, rec).Run(ctx, f.inputs())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "pipeline: reconcile")
	assert.Equal(t, []string{"load", "reconcile"}, rec.phases)
}
