package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), ResultsFile)
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st, dbPath
}

// readFillMetrics reads back the stored fill metrics ordered by key.
func readFillMetrics(ctx context.Context, s *SQLiteStore) ([]model.FillMetric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT npi, ndc, fills, reverted, avg_price, total_price FROM fill_metrics ORDER BY npi, ndc`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query fill metrics")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.FillMetric
	for rows.Next() {
		var m model.FillMetric
		if err := rows.Scan(&m.NPI, &m.NDC, &m.Fills, &m.Reverted, &m.AvgPrice, &m.TotalPrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fill metric")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate fill metrics")
}

// readRecommendations regroups the stored chain rows per drug.
func readRecommendations(ctx context.Context, s *SQLiteStore) ([]model.ChainRecommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ndc, chain, avg_price FROM chain_recommendations ORDER BY ndc, rank`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query chain recommendations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ChainRecommendation
	for rows.Next() {
		var ndc string
		var c model.ChainPrice
		if err := rows.Scan(&ndc, &c.Name, &c.AvgPrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chain recommendation")
		}
		if n := len(out); n == 0 || out[n-1].NDC != ndc {
			out = append(out, model.ChainRecommendation{NDC: ndc})
		}
		last := &out[len(out)-1]
		last.Chain = append(last.Chain, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate chain recommendations")
}

func sampleReport() model.Report {
	return model.Report{
		FillMetrics: []model.FillMetric{
			{NPI: "2", NDC: "D1", Fills: 1, AvgPrice: 5, TotalPrice: 50},
			{NPI: "00123", NDC: "D1", Fills: 2, Reverted: 1, AvgPrice: 10, TotalPrice: 100},
		},
		Recommendations: []model.ChainRecommendation{
			{NDC: "D1", Chain: []model.ChainPrice{{Name: "B", AvgPrice: 5}, {Name: "A", AvgPrice: 10}}},
			{NDC: "D2", Chain: []model.ChainPrice{{Name: "C", AvgPrice: 1.25}}},
		},
		Quantities: []model.QuantityProfile{
			{NDC: "D1", MostPrescribedQuantity: []float64{10, 30}},
		},
	}
}

func TestSQLite_SaveAndRead(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveReport(ctx, "run-1", map[string]int{"claims": 3}, sampleReport()))

	metrics, err := readFillMetrics(ctx, st)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "00123", metrics[0].NPI, "identifiers stay text")
	assert.Equal(t, 1, metrics[0].Reverted)

	recs, err := readRecommendations(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, sampleReport().Recommendations, recs)

	var qty int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM common_quantities`).Scan(&qty))
	assert.Equal(t, 2, qty)
}

func TestSQLite_MigrateReplacesPreviousRun(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveReport(ctx, "run-1", nil, sampleReport()))
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.SaveReport(ctx, "run-2", nil, model.Report{}))

	metrics, err := readFillMetrics(ctx, st)
	require.NoError(t, err)
	assert.Empty(t, metrics)

	var runs int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&runs))
	assert.Equal(t, 1, runs)
}

func TestSQLite_DuplicateKeyRollsBack(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	r := sampleReport()
	r.FillMetrics = append(r.FillMetrics, r.FillMetrics[0])
	require.Error(t, st.SaveReport(ctx, "run-1", nil, r))

	var runs int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&runs))
	assert.Equal(t, 0, runs)
}
