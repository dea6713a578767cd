package assessment

import (
	"fmt"
	"math"

	"TriRecover/internal/domain/models"
)

type zCheck struct {
	metric models.Metric
	hint   string
}

// Order matters: it is the order flags are reported in.
var zChecks = []zCheck{
	{models.MetricMReady, "Readiness"},
	{models.MetricMHrv, "HRV"},
	{models.MetricOuraRec, "Recovery"},
	{models.MetricWhoopRec, "Recovery"},
	{models.MetricWhoopRhr, "RHR"},
	{models.MetricOuraRhr, "RHR"},
	{models.MetricSteps, "Steps"},
	{models.MetricFatigue, "Fatigue"},
}

// DetectOutliers flags metrics that deviate from baseline by z-score,
// absolute rise/drop or fractional drop. Steps of a morning entry are
// pending, as are zero steps on refDate, the caller's "today".
func DetectOutliers(e *models.DailyEntry, base models.Baselines, t Thresholds, refDate string) []models.OutlierFlag {
	flags := make([]models.OutlierFlag, 0, 4)

	pendingSteps := e.StepsPending() || (e.Date == refDate && *e.Steps == 0)
	for _, c := range zChecks {
		if c.metric == models.MetricSteps && pendingSteps {
			continue
		}
		if f, ok := zFlag(e, base, t, c); ok {
			flags = append(flags, f)
		}
	}

	for _, rhr := range []struct {
		metric models.Metric
		device models.Device
	}{
		{models.MetricWhoopRhr, models.Whoop},
		{models.MetricOuraRhr, models.Oura},
	} {
		mean, v := base.Mean(rhr.metric), rhr.metric.Value(e)
		if mean != nil && isFinite(v) && *v-*mean >= t.RHRAbs {
			flags = append(flags, models.OutlierFlag{
				Field: rhr.metric,
				Kind:  models.FlagAbs,
				Hint:  fmt.Sprintf("%s RHR +%s bpm vs baseline", rhr.device, trimFloat(t.RHRAbs)),
			})
		}
	}

	if mean := base.Mean(models.MetricMHrv); positive(mean) && isFinite(e.MHrv) {
		if (*mean-*e.MHrv)/(*mean) >= t.HRVDropPct {
			flags = append(flags, models.OutlierFlag{
				Field: models.MetricMHrv,
				Kind:  models.FlagPct,
				Hint:  fmt.Sprintf("HRV drop ≥%d%% vs baseline", int(math.Round(t.HRVDropPct*100))),
			})
		}
	}

	for _, rec := range []struct {
		metric models.Metric
		label  string
	}{
		{models.MetricMReady, "Readiness"},
		{models.MetricOuraRec, "Recovery"},
		{models.MetricWhoopRec, "Recovery"},
	} {
		mean, v := base.Mean(rec.metric), rec.metric.Value(e)
		if mean != nil && isFinite(v) && *mean-*v >= t.RecDropAbs {
			flags = append(flags, models.OutlierFlag{
				Field: rec.metric,
				Kind:  models.FlagAbs,
				Hint:  fmt.Sprintf("%s drop ≥%s", rec.label, trimFloat(t.RecDropAbs)),
			})
		}
	}

	return flags
}

func zFlag(e *models.DailyEntry, base models.Baselines, t Thresholds, c zCheck) (models.OutlierFlag, bool) {
	b := base[c.metric]
	v := c.metric.Value(e)
	if b.Mean == nil || !isFinite(v) || b.SD == nil || *b.SD == 0 {
		return models.OutlierFlag{}, false
	}
	z := (*v - *b.Mean) / *b.SD
	if math.IsNaN(z) || math.Abs(z) < t.ZOutlier {
		return models.OutlierFlag{}, false
	}
	return models.OutlierFlag{Field: c.metric, Kind: models.FlagZ, Z: &z, Hint: c.hint}, true
}

// distinctFields is the set of metrics with at least one flag.
func distinctFields(flags []models.OutlierFlag) map[models.Metric]bool {
	out := make(map[models.Metric]bool, len(flags))
	for _, f := range flags {
		out[f.Field] = true
	}
	return out
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
