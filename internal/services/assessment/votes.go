package assessment

import (
	"fmt"
	"strings"

	"TriRecover/internal/domain/models"
)

// CastVotes gives each device at most one vote. Whoop falls back to an
// RHR-derived proxy (120 - RHR) only when its recovery score is missing.
func CastVotes(e *models.DailyEntry, base models.Baselines) []models.Vote {
	votes := make([]models.Vote, 0, 3)
	add := func(d models.Device, signal string, score float64, mean *float64) {
		votes = append(votes, models.Vote{Device: d, Signal: signal, Score: score, State: classify(score, mean)})
	}

	if isFinite(e.MReady) {
		add(models.Morpheus, string(models.MetricMReady), *e.MReady, base.Mean(models.MetricMReady))
	}
	if isFinite(e.OuraRec) {
		add(models.Oura, string(models.MetricOuraRec), *e.OuraRec, base.Mean(models.MetricOuraRec))
	}
	switch {
	case isFinite(e.WhoopRec):
		add(models.Whoop, string(models.MetricWhoopRec), *e.WhoopRec, base.Mean(models.MetricWhoopRec))
	case isFinite(e.WhoopRhr):
		var mean *float64
		if m := base.Mean(models.MetricWhoopRhr); m != nil {
			proxy := whoopProxyOffset - *m
			mean = &proxy
		}
		add(models.Whoop, "whoopRhrProxy", whoopProxyOffset-*e.WhoopRhr, mean)
	}
	return votes
}

// classify is baseline-relative when a mean exists, absolute otherwise.
func classify(score float64, mean *float64) models.RecoveryState {
	if mean != nil {
		delta := score - *mean
		switch {
		case delta >= voteDelta:
			return models.StateOK
		case delta <= -voteDelta:
			return models.StateStressed
		default:
			return models.StateNeutral
		}
	}
	switch {
	case score >= voteAbsOK:
		return models.StateOK
	case score <= voteAbsStressed:
		return models.StateStressed
	default:
		return models.StateNeutral
	}
}

// MajorityOf needs an absolute count of two agreeing votes.
func MajorityOf(votes []models.Vote) models.Majority {
	ok, stressed := 0, 0
	for _, v := range votes {
		switch v.State {
		case models.StateOK:
			ok++
		case models.StateStressed:
			stressed++
		}
	}
	switch {
	case stressed >= 2:
		return models.MajorityStressed
	case ok >= 2:
		return models.MajorityOK
	default:
		return models.MajorityMixed
	}
}

// FatigueSignalOf maps subjective fatigue onto the vote states.
func FatigueSignalOf(e *models.DailyEntry, t Thresholds) models.FatigueSignal {
	if e.Fatigue == nil {
		return models.FatigueUnknown
	}
	switch f := *e.Fatigue; {
	case f >= t.FatigueHigh:
		return models.FatigueStressed
	case f <= t.FatigueLow:
		return models.FatigueOK
	default:
		return models.FatigueNeutral
	}
}

// Disagrees is true for a mixed majority or any decisive vote against it.
func Disagrees(votes []models.Vote, m models.Majority) bool {
	if m == models.MajorityMixed {
		return true
	}
	for _, v := range votes {
		if v.State != models.StateNeutral && !m.Matches(v.State) {
			return true
		}
	}
	return false
}

// FatigueMismatch is a decisive fatigue signal against a decisive majority.
func FatigueMismatch(f models.FatigueSignal, m models.Majority) bool {
	return f.Decisive() && m != models.MajorityMixed && !m.Matches(f.State())
}

var deviceFields = map[models.Device][]models.Metric{
	models.Morpheus: {models.MetricMReady, models.MetricMHrv},
	models.Oura:     {models.MetricOuraRec, models.MetricOuraRhr},
	models.Whoop:    {models.MetricWhoopRec, models.MetricWhoopRhr},
}

// OddOneOut names a single dissenting device whose own metrics are flagged.
// Zero or several candidates leave the question open.
func OddOneOut(votes []models.Vote, m models.Majority, f models.FatigueSignal, flags []models.OutlierFlag) (*models.Device, string) {
	if m == models.MajorityMixed || len(votes) < 2 {
		return nil, ""
	}
	var candidates []models.Vote
	for _, v := range votes {
		if v.State != models.StateNeutral && !m.Matches(v.State) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) != 1 {
		return nil, ""
	}
	c := candidates[0]

	flagged := distinctFields(flags)
	var hit []string
	for _, field := range deviceFields[c.Device] {
		if flagged[field] {
			hit = append(hit, string(field))
		}
	}
	if len(hit) == 0 {
		return nil, ""
	}
	fatigueAgainst := f.Decisive() && c.State != f.State()
	if f != models.FatigueUnknown && !fatigueAgainst {
		return nil, ""
	}

	d := c.Device
	return &d, fmt.Sprintf("Conflicts with majority (%s) and shows outlier behavior in %s.", m, strings.Join(hit, ", "))
}
