package assessment

import (
	"fmt"
	"math"

	"TriRecover/internal/domain/models"
)

// core is everything a day needs before pattern detection. It is also the
// lightweight first pass run for the two prior days.
type core struct {
	base            models.Baselines
	flags           []models.OutlierFlag
	votes           []models.Vote
	majority        models.Majority
	fatigue         models.FatigueSignal
	disagreement    bool
	fatigueMismatch bool
	outlierCount    int
	confidence      float64
	rec             models.RecColor
	why             []string
}

func computeCore(e *models.DailyEntry, sorted []models.DailyEntry, window int, t Thresholds, refDate string) core {
	c := core{base: baselinesSorted(sorted, window, e.Date)}
	c.flags = DetectOutliers(e, c.base, t, refDate)
	c.votes = CastVotes(e, c.base)
	c.majority = MajorityOf(c.votes)
	c.fatigue = FatigueSignalOf(e, t)
	c.disagreement = Disagrees(c.votes, c.majority)
	c.fatigueMismatch = FatigueMismatch(c.fatigue, c.majority)
	c.outlierCount = len(distinctFields(c.flags))
	c.confidence = Confidence(e, c.base, t, c.outlierCount, c.disagreement, c.fatigueMismatch)
	c.rec, c.why = trafficLight(e, t, c)
	return c
}

// Confidence starts at 100 and subtracts one penalty per concern, clamped to [0,100].
func Confidence(e *models.DailyEntry, base models.Baselines, t Thresholds, outliers int, disagreement, mismatch bool) float64 {
	conf := 100.0
	conf -= float64(outliers) * t.OutlierPenalty
	if disagreement {
		conf -= t.DisagreementPenalty
	}
	if mismatch {
		conf -= t.FatigueMismatchPenalty
	}
	if e.Trained() {
		conf -= t.TrainingPenalty
	}
	if mean := base.Mean(models.MetricSteps); !e.StepsPending() && mean != nil && *mean > 0 {
		if math.Abs(*e.Steps-*mean)/(*mean) > stepsSwingRatio {
			conf -= t.StepsSwingPenalty
		}
	}
	return clamp(conf, 0, 100)
}

func trafficLight(e *models.DailyEntry, t Thresholds, c core) (models.RecColor, []string) {
	rec := models.Green
	switch {
	case c.confidence < redBelow:
		rec = models.Red
	case c.confidence < yellowBelow:
		rec = models.Yellow
	}

	var why []string
	if e.Joint != nil && *e.Joint >= t.JointWarn {
		if rec == models.Green {
			rec = models.Yellow
		}
		why = append(why, fmt.Sprintf("Joint warning %g/10 → joint-protective bias.", *e.Joint))
	}
	if c.fatigue == models.FatigueStressed {
		if rec == models.Green {
			rec = models.Yellow
		}
		if c.confidence < redBelow {
			rec = models.Red
		}
		why = append(why, fmt.Sprintf("Fatigue %g/10 indicates strain.", *e.Fatigue))
	}
	if c.outlierCount > 0 {
		why = append(why, fmt.Sprintf("%d outlier signal(s) vs baseline.", c.outlierCount))
	}
	if c.disagreement {
		why = append(why, "Devices disagree → uncertainty day.")
	}
	if len(why) == 0 {
		why = append(why, "Stable vs baseline; devices mostly consistent.")
	}
	return rec, why
}

// planFor templates the recommendation text and steps from the final color.
func planFor(rec models.RecColor, dip bool) (string, []string) {
	switch rec {
	case models.Green:
		return "Maintain Rhythm — Go Wolf", []string{
			"Maintain rhythm: walk naturally; hills allowed if they feel good.",
			"Strength work only if it improves symptoms.",
		}
	case models.Yellow:
		return "Modulate & Observe — Stay in Motion", []string{
			"Modulate: keep the walk easy/conversational; avoid 'testing' the system.",
			"Reassess after ~3–5 pm before adding intensity.",
		}
	default:
		if dip {
			return "Morning Protection — Scout", []string{
				"Morning protection: keep the morning gentle.",
				"Short, easy walk only if it lightens heaviness.",
			}
		}
		return "Morning Protection — Rest", []string{"Protect the system: rest first."}
	}
}

// SignalTension is the engine-vs-battery mismatch: Morpheus above its baseline
// while Oura or Whoop recovery sits below its own.
func SignalTension(e *models.DailyEntry, base models.Baselines) (morphHigh, recLow bool) {
	morphHigh = above(e.MReady, base.Mean(models.MetricMReady))
	recLow = above(base.Mean(models.MetricOuraRec), e.OuraRec) || above(base.Mean(models.MetricWhoopRec), e.WhoopRec)
	return morphHigh, recLow
}

type fragility struct {
	kind       models.FragilityType
	mantra     string
	scoutCheck string
}

func classifyFragility(e *models.DailyEntry, t Thresholds, c core, tension, morphHigh, recLow bool) fragility {
	hrvLow := false
	if mean := c.base.Mean(models.MetricMHrv); positive(mean) && e.MHrv != nil {
		hrvLow = (*mean-*e.MHrv)/(*mean) >= t.HRVDropPct
	}
	rhrHigh := rose(e.OuraRhr, c.base.Mean(models.MetricOuraRhr), t.RHRAbs) ||
		rose(e.WhoopRhr, c.base.Mean(models.MetricWhoopRhr), t.RHRAbs)
	jointHigh := e.Joint != nil && *e.Joint >= t.JointWarn

	switch {
	case c.majority == models.MajorityStressed && (hrvLow || rhrHigh || (e.Fatigue != nil && *e.Fatigue >= globalFatigue)):
		return fragility{
			kind:       models.FragilityGlobal,
			mantra:     "Autonomic Reset: Systemic crash signature detected. Protection is mandatory today.",
			scoutCheck: "Notice any dizziness or heart racing: stay strictly within the lowest effort zones.",
		}
	case tension || (morphHigh && (recLow || jointHigh)):
		return fragility{
			kind:       models.FragilityConsolidation,
			mantra:     "Scout Then Roam: Consolidation fragility present. Capacity is present, but protection is needed.",
			scoutCheck: "Ask after 10 min: 'Is my system loosening or tightening?'",
		}
	case c.majority == models.MajorityOK && c.confidence >= yellowBelow:
		return fragility{
			kind:       models.FragilityNone,
			mantra:     "Build Durability: System is harmonized and stable. Maintain rhythm.",
			scoutCheck: "Confirm fluidity through the hips and joints. Keep the 'Wolf' mindset.",
		}
	default:
		return fragility{
			kind:       models.FragilityNone,
			mantra:     "Modulate & Observe: Transition day. Use movement to refine the picture.",
			scoutCheck: "Check for energy shifts post-exercise.",
		}
	}
}

// above is a > b with both known.
func above(a, b *float64) bool { return a != nil && b != nil && *a > *b }

func rose(v, mean *float64, by float64) bool {
	return v != nil && mean != nil && *v-*mean >= by
}
