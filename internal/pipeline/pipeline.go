// Package pipeline wires loading, reconciliation, and the three analytics
// goals into a single batch run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/claims-cli/internal/analytics"
	"github.com/sells-group/claims-cli/internal/loader"
	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/reconcile"
)

// Conditions that stop a run before any output is produced.
var (
	ErrNoPharmacies = eris.New("no valid pharmacy data with an 'npi' column found")
	ErrNoClaims     = eris.New("no valid claims data with 'npi' and 'id' columns found")
	// ErrNoWork is a soft stop: inputs were valid but no claim matched a
	// known pharmacy.
	ErrNoWork = eris.New("no claims correspond to the pharmacies provided")
)

// Collection names used in logs and metrics.
const (
	CollectionPharmacy = "pharmacy"
	CollectionClaims   = "claims"
	CollectionReverts  = "reverts"
)

// Inputs are the directory trees for each collection.
type Inputs struct {
	PharmacyDirs []string
	ClaimsDirs   []string
	RevertsDirs  []string
}

// Options configures a Pipeline.
type Options struct {
	Loader        loader.Options
	TopChains     int
	TopQuantities int
}

// Recorder receives run metrics. monitoring.Collector implements it.
type Recorder interface {
	RecordLoad(collection string, files, skipped, records int)
	RecordDropped(reason string, n int)
	RecordRows(goal string, n int)
	RecordPhase(phase string, d time.Duration)
}

// Stats counts records at each stage of a run.
type Stats struct {
	PharmacyRecords       int `json:"pharmacy_records"`
	Pharmacies            int `json:"pharmacies"`
	DuplicatePharmacyNPIs int `json:"duplicate_pharmacy_npis"`
	ClaimRecords          int `json:"claim_records"`
	ClaimsMissingIDs      int `json:"claims_missing_ids"`
	ClaimsUnknownPharmacy int `json:"claims_unknown_pharmacy"`
	Claims                int `json:"claims"`
	RevertRecords         int `json:"revert_records"`
	Reverts               int `json:"reverts"`
	PricedClaims          int `json:"priced_claims"`
	QuantityClaims        int `json:"quantity_claims"`
}

// PhaseResult captures the outcome of one phase of a run.
type PhaseResult struct {
	Name     string `json:"name"`
	Duration int64  `json:"duration_ms"`
}

// Result holds the three goal outputs of a successful run.
type Result struct {
	RunID           string                      `json:"run_id"`
	FillMetrics     []model.FillMetric          `json:"fill_metrics"`
	Recommendations []model.ChainRecommendation `json:"recommendations"`
	Quantities      []model.QuantityProfile     `json:"quantities"`
	Stats           Stats                       `json:"stats"`
	Phases          []PhaseResult               `json:"phases"`
}

// Pipeline runs the batch reconciliation.
type Pipeline struct {
	opts     Options
	loader   *loader.Loader
	recorder Recorder
}

// New creates a Pipeline. A nil recorder discards metrics.
func New(opts Options, recorder Recorder) *Pipeline {
	if opts.TopChains <= 0 {
		opts.TopChains = analytics.DefaultTopChains
	}
	if opts.TopQuantities <= 0 {
		opts.TopQuantities = analytics.DefaultTopQuantities
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		opts:     opts,
		loader:   loader.New(opts.Loader),
		recorder: recorder,
	}
}

// Run loads the inputs, reconciles them, and computes all three goals. It
// returns ErrNoPharmacies or ErrNoClaims when required inputs are missing and
// ErrNoWork when no claim belongs to a known pharmacy.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	result := &Result{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run_id", result.RunID))

	trackPhase := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		d := time.Since(start)
		p.recorder.RecordPhase(name, d)
		result.Phases = append(result.Phases, PhaseResult{Name: name, Duration: d.Milliseconds()})
		if err != nil {
			return err
		}
		log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", d.Milliseconds()))
		return nil
	}

	// ===== Load =====
	var pharmacyRes, claimsRes, revertsRes *loader.Result
	err := trackPhase("load", func() error {
		log.Info("pipeline: reading data from provided directories")
		var err error
		if pharmacyRes, err = p.load(ctx, CollectionPharmacy, in.PharmacyDirs); err != nil {
			return err
		}
		if claimsRes, err = p.load(ctx, CollectionClaims, in.ClaimsDirs); err != nil {
			return err
		}
		revertsRes, err = p.load(ctx, CollectionReverts, in.RevertsDirs)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(pharmacyRes.Records) == 0 || !model.AnyHas(pharmacyRes.Records, reconcile.FieldNPI) {
		return nil, ErrNoPharmacies
	}
	if len(claimsRes.Records) == 0 ||
		!model.AnyHas(claimsRes.Records, reconcile.FieldNPI) ||
		!model.AnyHas(claimsRes.Records, reconcile.FieldID) {
		return nil, ErrNoClaims
	}
	if len(revertsRes.Records) > 0 && !model.AnyHas(revertsRes.Records, reconcile.FieldClaimID) {
		log.Warn("pipeline: revert records carry no 'claim_id' column, no claims will be treated as reverted",
			zap.Int("revert_records", len(revertsRes.Records)),
		)
	}

	// ===== Reconcile =====
	var (
		pharmacies *reconcile.PharmacySet
		sets       *reconcile.ClaimSets
	)
	err = trackPhase("reconcile", func() error {
		stats := &result.Stats
		stats.PharmacyRecords = len(pharmacyRes.Records)
		stats.ClaimRecords = len(claimsRes.Records)
		stats.RevertRecords = len(revertsRes.Records)

		pharmacies = reconcile.Pharmacies(pharmacyRes.Records)
		stats.Pharmacies = len(pharmacies.Records)
		stats.DuplicatePharmacyNPIs = pharmacies.Duplicates
		if pharmacies.Duplicates > 0 {
			log.Warn("pipeline: duplicate pharmacy npi values; chain averages count such claims once per pharmacy",
				zap.Int("duplicates", pharmacies.Duplicates),
			)
		}

		claims, missing := reconcile.Claims(claimsRes.Records)
		known := reconcile.KnownPharmacies(claims, pharmacies)
		stats.ClaimsMissingIDs = missing
		stats.ClaimsUnknownPharmacy = len(claims) - len(known)
		stats.Claims = len(known)

		reverts := reconcile.Reverts(revertsRes.Records)
		stats.Reverts = len(reverts)

		sets = reconcile.Build(known, reverts)
		stats.PricedClaims = len(sets.Priced)
		stats.QuantityClaims = len(sets.Quantities)

		p.recorder.RecordDropped("missing_identifier", stats.ClaimsMissingIDs)
		p.recorder.RecordDropped("unknown_pharmacy", stats.ClaimsUnknownPharmacy)
		p.recorder.RecordDropped("not_priced", stats.Claims-stats.PricedClaims)

		log.Info("pipeline: reconciled inputs",
			zap.Int("pharmacies", stats.Pharmacies),
			zap.Int("reverts", stats.Reverts),
			zap.Int("initial_claims", stats.ClaimRecords),
			zap.Int("claims", stats.Claims),
		)
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: reconcile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(sets.All) == 0 {
		return nil, ErrNoWork
	}

	// ===== Goals =====
	err = trackPhase("analytics", func() error {
		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			log.Info("pipeline: calculating fill metrics")
			result.FillMetrics = analytics.FillMetrics(sets)
			return gCtx.Err()
		})
		g.Go(func() error {
			log.Info("pipeline: calculating chain recommendations", zap.Int("top", p.opts.TopChains))
			result.Recommendations = analytics.ChainRecommendations(sets.Priced, pharmacies, p.opts.TopChains)
			return gCtx.Err()
		})
		g.Go(func() error {
			log.Info("pipeline: calculating common quantities", zap.Int("top", p.opts.TopQuantities))
			result.Quantities = analytics.CommonQuantities(sets.Quantities, p.opts.TopQuantities)
			return gCtx.Err()
		})

		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "pipeline: analytics")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.recorder.RecordRows("goal_2", len(result.FillMetrics))
	p.recorder.RecordRows("goal_3", len(result.Recommendations))
	p.recorder.RecordRows("goal_4", len(result.Quantities))

	return result, nil
}

func (p *Pipeline) load(ctx context.Context, collection string, dirs []string) (*loader.Result, error) {
	res, err := p.loader.Load(ctx, dirs)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load %s", collection)
	}
	p.recorder.RecordLoad(collection, res.Files, len(res.Skipped), len(res.Records))
	zap.L().Info("pipeline: collection loaded",
		zap.String("collection", collection),
		zap.Int("files", res.Files),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("records", len(res.Records)),
	)
	return res, nil
}

type nopRecorder struct{}

func (nopRecorder) RecordLoad(string, int, int, int) {}

func (nopRecorder) RecordDropped(string, int) {}

func (nopRecorder) RecordRows(string, int) {}

func (nopRecorder) RecordPhase(string, time.Duration) {}
