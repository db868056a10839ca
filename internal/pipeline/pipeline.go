// Package pipeline runs one variance report cycle: load the source sheet,
// clean it, gate on parity, build both metric flavours, persist and
// dispatch.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/variance-cli/internal/classify"
	"github.com/sells-group/variance-cli/internal/config"
	"github.com/sells-group/variance-cli/internal/dispatch"
	"github.com/sells-group/variance-cli/internal/market"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/monitoring"
	"github.com/sells-group/variance-cli/internal/parity"
	"github.com/sells-group/variance-cli/internal/projection"
	"github.com/sells-group/variance-cli/internal/sheet"
	"github.com/sells-group/variance-cli/internal/store"
)

// Dispatcher delivers rendered report files.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients, files []string, caption string) (dispatch.Result, error)
}

// Pipeline orchestrates a report run.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	sender  Dispatcher
	alerter *monitoring.Alerter
	now     func() time.Time
	clean   func(classify.Rules, []model.SourceRow) []model.SourceRow
}

// New creates a Pipeline. sender may be nil, which disables dispatch.
func New(cfg *config.Config, st store.Store, sender Dispatcher, alerter *monitoring.Alerter) *Pipeline {
	if alerter == nil {
		alerter = monitoring.NewAlerter(cfg.Monitoring)
	}
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		sender:  sender,
		alerter: alerter,
		now:     time.Now,
		clean: func(r classify.Rules, rows []model.SourceRow) []model.SourceRow {
			return classify.New(r).Clean(rows)
		},
	}
}

// SetClock overrides the wall clock used for the period and file stamps.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// Options tunes a single run.
type Options struct {
	File       string // overrides source.path / source.dir
	Day        int    // overrides the elapsed day; 0 keeps config / calendar
	NoDispatch bool
}

// Result summarises a run.
type Result struct {
	RunID    string
	Source   string
	Parity   []model.ParityReport
	Reports  []model.Report // model.Metrics order
	Files    []string
	Snapshot int64
	Dispatch *dispatch.Result
}

// Run executes the full cycle. A closed parity gate returns an error
// wrapping parity.ErrParityFailed and writes no report.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	path, err := sheet.Resolve(p.sheetOptions(opts))
	if err != nil {
		p.alert(ctx, p.alerter.RunFailure("", p.cfg.Source.Dir, err))
		return nil, err
	}

	run, err := p.store.CreateRun(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	res := &Result{RunID: run.ID, Source: path}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("source", path))
	log.Info("pipeline: starting run")

	finish := func(status model.RunStatus, runErr error) {
		msg := ""
		if runErr != nil {
			msg = runErr.Error()
		}
		// The caller's context may already be cancelled.
		if err := p.store.FinishRun(context.WithoutCancel(ctx), run.ID, status, msg); err != nil {
			log.Warn("pipeline: failed to finish run", zap.Error(err))
		}
	}
	fail := func(err error) (*Result, error) {
		finish(model.RunStatusFailed, err)
		p.alert(ctx, p.alerter.RunFailure(run.ID, path, err))
		return res, err
	}

	raw, clean, rules, err := p.load(ctx, path)
	if err != nil {
		return fail(err)
	}

	res.Parity, err = p.validator(rules).Check(ctx, run.ID, raw, clean, model.Metrics...)
	if err != nil {
		finish(model.RunStatusAborted, err)
		if errors.Is(err, parity.ErrParityFailed) {
			p.alert(ctx, p.alerter.ParityAlerts(res.Parity)...)
		}
		return res, err
	}

	now := p.now()
	period := p.period(now, opts.Day)
	baselines := p.baselines()
	stamp := now.Format("2006-01-02")

	reports := make([]model.Report, len(model.Metrics))
	files := make([][]string, len(model.Metrics))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range model.Metrics {
		g.Go(func() error {
			rep, written, err := p.flavour(gctx, m, raw, clean, period, baselines, stamp)
			if err != nil {
				return eris.Wrapf(err, "pipeline: build %s report", m)
			}
			reports[i] = rep
			files[i] = written
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}
	res.Reports = reports
	for _, f := range files {
		res.Files = append(res.Files, f...)
	}

	if p.cfg.Store.Snapshot {
		n, err := p.store.SaveSnapshot(ctx, run.ID, clean)
		if err != nil {
			log.Warn("pipeline: snapshot failed", zap.Error(err))
		}
		res.Snapshot = n
	}

	if !opts.NoDispatch && p.sender != nil {
		dr, err := p.dispatch(ctx, run.ID, now, res.Files)
		if err != nil {
			return fail(err)
		}
		res.Dispatch = dr
	}

	finish(model.RunStatusComplete, nil)
	log.Info("pipeline: run complete",
		zap.Int("clean_rows", len(clean)),
		zap.Int("files", len(res.Files)),
		zap.Int64("snapshot_rows", res.Snapshot),
	)
	return res, nil
}

// Validate runs only the parity gate over the source and records the audit
// trail. No run record is created and nothing is rendered.
func (p *Pipeline) Validate(ctx context.Context, opts Options) (*Result, error) {
	path, err := sheet.Resolve(p.sheetOptions(opts))
	if err != nil {
		return nil, err
	}
	raw, clean, rules, err := p.load(ctx, path)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: "validate-" + uuid.NewString(), Source: path}
	res.Parity, err = p.validator(rules).Check(ctx, res.RunID, raw, clean, model.Metrics...)
	return res, err
}

func (p *Pipeline) sheetOptions(opts Options) sheet.Options {
	so := sheet.Options{
		Path:      p.cfg.Source.Path,
		Dir:       p.cfg.Source.Dir,
		SkipRows:  p.cfg.Source.SkipRows,
		SheetName: p.cfg.Source.Sheet,
	}
	if opts.File != "" {
		so.Path = opts.File
	}
	return so
}

// load reads the sheet and splits off the rollup rows.
func (p *Pipeline) load(ctx context.Context, path string) (raw, clean []model.SourceRow, rules classify.Rules, err error) {
	rules = p.rules()
	raw, err = sheet.Load(ctx, path, p.sheetOptions(Options{File: path}))
	if err != nil {
		return nil, nil, rules, err
	}
	clean = p.clean(rules, raw)
	return raw, clean, rules, nil
}

func (p *Pipeline) rules() classify.Rules {
	c := p.cfg.Classifier
	r := classify.DefaultRules()
	if len(c.LabelKeywords) > 0 {
		r.LabelKeywords = c.LabelKeywords
	}
	if c.RegionKeyword != "" {
		r.RegionKeyword = c.RegionKeyword
	}
	r.RegionAllow = c.RegionAllow

	if c.RulesFile != "" {
		loaded, err := classify.LoadRules(c.RulesFile, r)
		if err != nil {
			zap.L().Warn("pipeline: classifier rules file ignored", zap.String("path", c.RulesFile), zap.Error(err))
			return r
		}
		return loaded
	}
	return r
}

func (p *Pipeline) validator(rules classify.Rules) *parity.Validator {
	audits := parity.MultiAudit{store.ParityAudit{Store: p.store}}
	if p.cfg.Parity.AuditLogPath != "" {
		audits = append(parity.MultiAudit{parity.NewFileAuditLog(p.cfg.Parity.AuditLogPath)}, audits...)
	}
	return parity.NewValidator(rules,
		parity.WithTolerance(p.cfg.Parity.Tolerance),
		parity.WithAudit(audits),
		parity.WithClock(p.now),
	)
}

func (p *Pipeline) period(now time.Time, day int) projection.Period {
	elapsed := p.cfg.Period.ElapsedOverride
	if day > 0 {
		elapsed = day
	}
	return projection.NewPeriod(now, p.cfg.Period.LengthDays, p.cfg.Period.NormalEndDay, elapsed)
}

// baselines loads the market cache; a corrupt cache leaves every brand
// unmapped.
func (p *Pipeline) baselines() market.Baselines {
	b, err := market.Load(p.cfg.Reference.MarketPath)
	if err != nil {
		zap.L().Warn("pipeline: market baselines unavailable", zap.String("path", p.cfg.Reference.MarketPath), zap.Error(err))
		return market.Baselines{}
	}
	return b
}

func (p *Pipeline) dispatch(ctx context.Context, runID string, now time.Time, files []string) (*dispatch.Result, error) {
	recipients := dispatch.ParseRecipients(p.cfg.Dispatch.Recipients)
	caption := p.cfg.Report.Company + " " + now.Format("Jan 2006") + " variance report"

	dr, err := p.sender.Dispatch(ctx, recipients, files, caption)
	if err != nil {
		return &dr, eris.Wrap(err, "pipeline: dispatch")
	}
	if !dr.OK() {
		p.alert(ctx, p.alerter.DispatchFailure(runID, dr.Failed))
	}
	zap.L().Info("pipeline: dispatch finished",
		zap.String("run_id", runID),
		zap.Int("sent", len(dr.Sent)),
		zap.Int("failed", len(dr.Failed)),
	)
	return &dr, nil
}

func (p *Pipeline) alert(ctx context.Context, alerts ...monitoring.Alert) {
	p.alerter.SendAlerts(context.WithoutCancel(ctx), alerts)
}
