package ingestion

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/linking"
	"github.com/guttosm/capitolledger/internal/logger"
	"github.com/guttosm/capitolledger/internal/normalize"
	"github.com/guttosm/capitolledger/internal/quality"
	"github.com/guttosm/capitolledger/internal/storage"
)

// State is a step of the run state machine.
type State string

const (
	StateLoading     State = "LOADING"
	StateNormalizing State = "NORMALIZING"
	StateLinking     State = "LINKING"
	StateReporting   State = "REPORTING"
	StateDone        State = "DONE"
	StateError       State = "ERROR"
)

const (
	defaultBatchSize      = 500
	defaultMemberCacheTTL = 10 * time.Minute
	maxWorkers            = 16
)

// newRunID and now are indirections tests can override.
var (
	newRunID = uuid.NewString
	now      = func() time.Time { return time.Now().UTC() }
)

// TradeStore persists normalized trades. inserted is false when the (doc_id, ordinal)
// pair was already stored.
type TradeStore interface {
	UpsertTrade(ctx context.Context, t models.NormalizedTrade) (id int64, inserted bool, err error)
	TradeExists(ctx context.Context, key models.RowKey) (bool, error)
}

// MemberResolver maps a filer name to a registry reference, creating a stub when needed.
type MemberResolver interface {
	Resolve(ctx context.Context, name string) (models.MemberRef, error)
}

// IssuerIndexer serves the registry's issuer-name snapshot.
type IssuerIndexer interface {
	IssuerIndex(ctx context.Context) ([]models.IssuerName, error)
}

// Linker attaches a resolved ticker to a registry entry.
type Linker interface {
	Link(ctx context.Context, ticker string) (models.SecurityRef, models.LinkOutcome, error)
}

// RunLog stores run reports.
type RunLog interface {
	SaveRun(ctx context.Context, report models.DataQualityReport) error
}

// Options tunes a run. Zero values fall back to defaults.
type Options struct {
	Workers        int
	BatchSize      int
	FuzzyThreshold int
	OwnerThreshold int
	SampleSize     int
	// Dictionary is the static company table; registry names are merged in per batch.
	Dictionary     map[string]string
	Review         quality.ReviewPolicy
	ReviewSink     quality.ReviewSink
	MemberCacheTTL time.Duration
	// OnState is called on every state transition.
	OnState func(runID string, s State)
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.Workers > maxWorkers {
		o.Workers = maxWorkers
	}
	if o.BatchSize < 1 {
		o.BatchSize = defaultBatchSize
	}
	if o.FuzzyThreshold < 1 {
		o.FuzzyThreshold = normalize.DefaultFuzzyThreshold
	}
	if o.OwnerThreshold < 1 {
		o.OwnerThreshold = normalize.DefaultOwnerThreshold
	}
	if o.SampleSize < 1 {
		o.SampleSize = quality.DefaultSampleSize
	}
	if o.Dictionary == nil {
		o.Dictionary = normalize.DefaultCompanies()
	}
	if o.Review.ConfidenceCutoff <= 0 {
		o.Review.ConfidenceCutoff = quality.DefaultConfidenceCutoff
	}
	if o.MemberCacheTTL <= 0 {
		o.MemberCacheTTL = defaultMemberCacheTTL
	}
	return o
}

// Orchestrator drives one source through load, normalize, link, persist and report.
//
// Rows are committed one at a time; a failure aborts the run but leaves rows already
// committed in place, and re-running the same source only adds what is missing.
type Orchestrator struct {
	trades  TradeStore
	members MemberResolver
	issuers IssuerIndexer
	linker  Linker
	runs    RunLog
	owners  *normalize.OwnerNormalizer
	memo    *cache.Cache
	lookups singleflight.Group
	opts    Options
}

// NewOrchestrator wires the pipeline. runs may be nil, in which case reports are
// only returned.
func NewOrchestrator(trades TradeStore, members MemberResolver, issuers IssuerIndexer, linker Linker, runs RunLog, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		trades:  trades,
		members: members,
		issuers: issuers,
		linker:  linker,
		runs:    runs,
		owners:  normalize.NewOwnerNormalizer(opts.OwnerThreshold),
		memo:    cache.New(opts.MemberCacheTTL, 2*opts.MemberCacheTTL),
		opts:    opts,
	}
}

// rowResult is one row moving through a batch.
type rowResult struct {
	rec   Record
	trade models.NormalizedTrade
	out   models.RowOutcome
	done  bool
}

type run struct {
	o        *Orchestrator
	id       string
	source   string
	started  time.Time
	state    State
	log      zerolog.Logger
	acct     *quality.Accountant
	exporter *quality.Exporter
}

// Run ingests every record of src and returns the run's quality report.
//
// Parameters:
//   - ctx: cancels the run; rows committed before cancellation stay committed.
//   - src: the source to load; it is read to the end before anything is committed.
//
// Returns:
//   - the report (also on failure, with State ERROR and the error message)
//   - error: ErrSourceUnreadable, linking.ErrRegistryUnavailable, a store error or ctx.Err()
func (o *Orchestrator) Run(ctx context.Context, src Source) (models.DataQualityReport, error) {
	r := &run{
		o:        o,
		id:       newRunID(),
		source:   src.Name(),
		started:  now(),
		acct:     quality.NewAccountant(o.opts.SampleSize),
		exporter: quality.NewExporter(o.opts.Review, o.opts.ReviewSink),
	}
	r.log = logger.ForRun(r.id, r.source)

	r.enter(StateLoading)
	recs, err := src.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSourceUnreadable) && ctx.Err() == nil {
			err = unreadable(r.source, err)
		}
		return r.fail(ctx, err)
	}
	r.log.Info().Int("rows", len(recs)).Msg("source loaded")

	for start, n := 0, 0; start < len(recs); start, n = start+o.opts.BatchSize, n+1 {
		end := start + o.opts.BatchSize
		if end > len(recs) {
			end = len(recs)
		}
		if err := r.batch(ctx, n, recs[start:end]); err != nil {
			return r.fail(ctx, err)
		}
	}

	r.enter(StateReporting)
	if _, err := r.exporter.Flush(ctx); err != nil {
		return r.fail(ctx, err)
	}
	report := r.report(StateDone, nil)
	r.save(ctx, report)
	r.enter(StateDone)
	r.log.Info().
		Int("total", report.Total).
		Int("persisted", report.Persisted).
		Int("duplicates", report.Duplicates).
		Int("review_items", report.ReviewItems).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("run done")
	return report, nil
}

func (r *run) enter(s State) {
	r.state = s
	r.log.Debug().Str("state", string(s)).Msg("state")
	if r.o.opts.OnState != nil {
		r.o.opts.OnState(r.id, s)
	}
}

// batch normalizes rows concurrently, then links and persists them.
func (r *run) batch(ctx context.Context, n int, recs []Record) error {
	o := r.o
	r.enter(StateNormalizing)

	issuers, err := o.issuers.IssuerIndex(ctx)
	if err != nil {
		return fmt.Errorf("batch %d: load issuer index: %w", n, err)
	}
	tables := normalize.BuildTables(o.opts.Dictionary, issuers)
	rn := normalize.NewRowNormalizer(o.owners, normalize.NewTickerResolver(tables, o.opts.FuzzyThreshold))

	results := make([]rowResult, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = normalizeRecord(rn, recs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.enter(StateLinking)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i := range results {
		if results[i].rec.Malformed() {
			continue
		}
		i := i
		g.Go(func() error { return r.commit(gctx, &results[i]) })
	}
	err = g.Wait()

	// committed rows are accounted even when the batch fails
	for i := range results {
		res := &results[i]
		if !res.rec.Malformed() && !res.done {
			continue
		}
		r.account(res)
	}
	// committed rows are duplicates on a re-run, so their review items are written now
	queued, ferr := r.exporter.Flush(context.WithoutCancel(ctx))
	r.log.Info().Int("batch", n).Int("rows", len(recs)).Int("review_items", queued).Msg("batch committed")
	if err != nil {
		return fmt.Errorf("batch %d: %w", n, err)
	}
	if ferr != nil {
		return fmt.Errorf("batch %d: %w", n, ferr)
	}
	return nil
}

func normalizeRecord(rn *normalize.RowNormalizer, rec Record) rowResult {
	if rec.Malformed() {
		var out models.RowOutcome
		out.Set(models.StageSource, models.OutcomeMalformed)
		out.MalformedErr = rec.Err.Error()
		out.AddReason("malformed row")
		return rowResult{
			rec:   rec,
			trade: models.NormalizedTrade{DocID: rec.Row.DocID, QualityFlags: models.NewFlagSet(models.FlagMalformedRow)},
			out:   out,
		}
	}
	t, out := rn.Normalize(rec.Row)
	out.Set(models.StageSource, models.OutcomeOK)
	return rowResult{rec: rec, trade: t, out: out}
}

// commit resolves the member, links the ticker and upserts the trade as one unit.
// Rows already in the ledger are skipped before any registry write.
func (r *run) commit(ctx context.Context, res *rowResult) error {
	o := r.o
	t := &res.trade
	if err := ctx.Err(); err != nil {
		return err
	}

	stored, err := o.trades.TradeExists(ctx, t.Key())
	if err != nil {
		return fmt.Errorf("lookup %s/%d: %w", t.DocID, t.RowOrdinal, err)
	}
	if stored {
		r.duplicate(res)
		return nil
	}

	member, err := r.member(ctx, t.MemberName)
	if err != nil {
		return fmt.Errorf("resolve member %q: %w", t.MemberName, err)
	}
	t.MemberID = member.ID
	res.out.Set(models.StageMember, models.OutcomeOK)

	if t.TickerResolved() {
		ticker := *t.Ticker
		ref, outcome, err := o.linker.Link(ctx, ticker)
		switch {
		case errors.Is(err, linking.ErrRegistryTimeout):
			// left for the backfill sweep
			t.ClearTicker()
			t.QualityFlags.Add(models.FlagRegistryTimeout, models.FlagTickerUnresolved)
			res.out.Set(models.StageLink, models.OutcomeTimeout)
			res.out.AddReason(linking.ErrRegistryTimeout.Error())
			res.out.AddReason(normalize.ErrUnresolvedTicker.Error())
			r.log.Warn().Str("doc_id", t.DocID).Int("ordinal", t.RowOrdinal).Str("ticker", ticker).Msg("registry timeout, row left unresolved")
		case err != nil:
			return fmt.Errorf("link %s: %w", ticker, err)
		default:
			id := ref.ID
			t.SecurityID = &id
			if outcome == models.LinkCreated {
				res.out.Set(models.StageLink, models.OutcomeCreated)
			} else {
				res.out.Set(models.StageLink, models.OutcomeExisting)
			}
		}
	} else {
		res.out.Set(models.StageLink, models.OutcomeSkipped)
	}

	id, inserted, err := o.trades.UpsertTrade(ctx, *t)
	if err != nil {
		return fmt.Errorf("persist %s/%d: %w", t.DocID, t.RowOrdinal, err)
	}
	if !inserted {
		// stored concurrently since the existence check
		r.duplicate(res)
		return nil
	}
	t.ID = id
	res.out.Set(models.StagePersist, models.OutcomeInserted)
	res.done = true
	return nil
}

func (r *run) duplicate(res *rowResult) {
	res.out.Set(models.StagePersist, models.OutcomeDuplicate)
	res.done = true
	r.log.Debug().Str("doc_id", res.trade.DocID).Int("ordinal", res.trade.RowOrdinal).Err(storage.ErrDuplicateDocument).Msg("skipped")
}

// member resolves a filer through the cache; concurrent misses for one name share a
// single registry call.
func (r *run) member(ctx context.Context, name string) (models.MemberRef, error) {
	o := r.o
	if v, ok := o.memo.Get(name); ok {
		return v.(models.MemberRef), nil
	}
	v, err, _ := o.lookups.Do(name, func() (interface{}, error) {
		if v, ok := o.memo.Get(name); ok {
			return v, nil
		}
		ref, err := o.members.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		o.memo.Set(name, ref, cache.DefaultExpiration)
		return ref, nil
	})
	if err != nil {
		return models.MemberRef{}, err
	}
	return v.(models.MemberRef), nil
}

// account records the row in the report and the review queue. Duplicates were queued
// by the run that first stored them.
func (r *run) account(res *rowResult) {
	if res.out.Stages[models.StagePersist] != models.OutcomeDuplicate {
		res.out.Review = r.exporter.Consider(r.id, res.rec.Row, res.trade, res.out)
	}
	r.acct.Record(res.rec.Row, res.trade, res.out)
}

func (r *run) report(state State, err error) models.DataQualityReport {
	rep := r.acct.Report()
	rep.RunID = r.id
	rep.Source = r.source
	rep.State = string(state)
	rep.StartedAt = r.started
	rep.FinishedAt = now()
	if err != nil {
		rep.Error = err.Error()
	}
	return rep
}

// fail moves the run to ERROR, writes any review items still queued and stores the
// partial report. Both writes survive caller cancellation.
func (r *run) fail(ctx context.Context, err error) (models.DataQualityReport, error) {
	from := r.state
	r.enter(StateError)
	wctx := context.WithoutCancel(ctx)
	if _, ferr := r.exporter.Flush(wctx); ferr != nil {
		r.log.Error().Err(ferr).Msg("review items lost")
	}
	rep := r.report(StateError, err)
	r.save(wctx, rep)
	r.log.Error().Str("from", string(from)).Err(err).Msg("run failed")
	return rep, err
}

// save stores the report. A run-log failure is logged, not fatal: the trades are
// already committed.
func (r *run) save(ctx context.Context, rep models.DataQualityReport) {
	if r.o.runs == nil {
		return
	}
	if err := r.o.runs.SaveRun(ctx, rep); err != nil {
		r.log.Error().Err(err).Msg("save run report failed")
	}
}

// RunAll ingests the sources one after another and stops at the first failure.
func (o *Orchestrator) RunAll(ctx context.Context, sources []Source) ([]models.DataQualityReport, error) {
	reports := make([]models.DataQualityReport, 0, len(sources))
	for _, src := range sources {
		rep, err := o.Run(ctx, src)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
