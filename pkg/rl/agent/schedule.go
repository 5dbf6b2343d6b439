package agent

import "math"

// epsilonAt evaluates the exploration schedule after step exploratory selections.
func epsilonAt(cfg Config, step int64) float64 {
	start, end := cfg.EpsilonStart, cfg.EpsilonEnd
	horizon := float64(cfg.EpsilonDecaySteps)
	if horizon <= 0 || float64(step) >= horizon {
		return end
	}
	progress := float64(step) / horizon

	switch cfg.EpsilonSchedule {
	case ScheduleLinear:
		return start + (end-start)*progress
	default:
		if start <= 0 || end <= 0 {
			return start + (end-start)*progress
		}
		// geometric interpolation reaches end exactly at the horizon
		return start * math.Pow(end/start, progress)
	}
}
