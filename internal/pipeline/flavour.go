package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/market"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/parity"
	"github.com/sells-group/variance-cli/internal/projection"
	"github.com/sells-group/variance-cli/internal/report"
	"github.com/sells-group/variance-cli/internal/target"
)

// flavour builds and writes the report of one metric. raw and clean are
// shared with the other flavour and must not be mutated.
func (p *Pipeline) flavour(ctx context.Context, m model.Metric, raw, clean []model.SourceRow, period projection.Period, baselines market.Baselines, stamp string) (model.Report, []string, error) {
	if err := ctx.Err(); err != nil {
		return model.Report{}, nil, err
	}
	log := zap.L().With(zap.String("metric", string(m)))

	factors, path, err := projection.LoadSurgeFactors(p.cfg.Reference.SurgeDir, m)
	if err != nil {
		log.Warn("pipeline: surge factors unavailable, projecting linearly", zap.String("path", path), zap.Error(err))
		factors = nil
	} else if path == "" {
		log.Info("pipeline: no surge factors found, projecting linearly")
	}

	d := target.Derive(clean, m, target.Options{
		PreviousPeriodFallback: p.cfg.Targets.PreviousPeriodFallback,
		FallbackFactor:         p.cfg.Targets.FallbackFactor,
	})
	tables := projection.AggregateAll(clean, d, period, factors)
	brands := market.Enrich(tables[model.CategoryBrand], baselines, m)
	tables[model.CategoryBrand] = brands
	if len(baselines) > 0 {
		log.Info("pipeline: market coverage",
			zap.Int("brands", len(brands)),
			zap.Int("mapped", market.Coverage(brands, baselines)),
		)
	}

	rawTargets := target.ExtractGroupTargets(raw, p.cfg.Report.Teams, m, p.cfg.Targets.RollupMarkers...)
	summary := report.BuildSummary(m, d, tables, rawTargets, period, report.SummaryOptions{
		Company:           p.cfg.Report.Company,
		Teams:             p.cfg.Report.Teams,
		Underperformers:   p.cfg.Report.Underperformers,
		OnTrackPct:        p.cfg.Report.OnTrackPct,
		SlightlyBehindPct: p.cfg.Report.SlightlyBehindPct,
	})
	rep := report.Build(m, period, summary, tables)

	if mismatches := parity.VerifyProRata(tables, period); len(mismatches) > 0 {
		log.Warn("pipeline: pro-rata drift detected", zap.Int("rows", len(mismatches)))
	}

	files, err := report.WriteAll(p.cfg.Output.Dir, stamp, rep, p.cfg.Output.Formats)
	return rep, files, err
}
