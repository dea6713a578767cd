package assessment

import "TriRecover/internal/domain/models"

// ComputeBaselines summarizes each tracked metric over at most window entries
// strictly before date. When date is absent the whole history counts as prior.
func ComputeBaselines(history []models.DailyEntry, window int, date string) models.Baselines {
	return baselinesSorted(models.SortEntries(history), window, date)
}

func baselinesSorted(sorted []models.DailyEntry, window int, date string) models.Baselines {
	prior := sorted
	if idx := models.IndexOf(sorted, date); idx != -1 {
		prior = sorted[:idx]
	}
	if window < 0 {
		window = 0
	}
	if len(prior) > window {
		prior = prior[len(prior)-window:]
	}

	base := make(models.Baselines, len(models.TrackedMetrics))
	for _, m := range models.TrackedMetrics {
		xs := make([]*float64, 0, len(prior))
		n := 0
		for i := range prior {
			v := m.Value(&prior[i])
			if m == models.MetricSteps && prior[i].MorningEntry {
				v = nil
			}
			if v != nil {
				n++
			}
			xs = append(xs, v)
		}
		base[m] = models.BaselineStats{Mean: Mean(xs), SD: SD(xs), N: n}
	}
	return base
}
