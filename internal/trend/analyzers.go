// Package trend classifies how a finding behaves across a series of runs.
package trend

// FrequencyBand classifies average occurrence.
type FrequencyBand string

const (
	BandRare         FrequencyBand = "rare"
	BandIntermittent FrequencyBand = "intermittent"
	BandCommon       FrequencyBand = "common"
	BandDominant     FrequencyBand = "dominant"
)

// ConfidenceTrend is the direction of sample count evolution.
type ConfidenceTrend string

const (
	ConfidenceStrengthening    ConfidenceTrend = "strengthening"
	ConfidenceWeakening        ConfidenceTrend = "weakening"
	ConfidenceStable           ConfidenceTrend = "stable"
	ConfidenceInsufficientData ConfidenceTrend = "insufficient_data"
)

// Stability classifies a finding's presence pattern.
type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityVolatile Stability = "volatile"
	StabilityEmerging Stability = "emerging"
)

const (
	minTrendPoints     = 3
	directionalShare   = 0.7
	stablePresenceRate = 0.8
	recentRuns         = 3
)

// CalculateFrequencyBand maps an average percentage to a band: dominant
// above 80, common above 40, intermittent from 10 inclusive, else rare.
func CalculateFrequencyBand(avgPercentage float64) FrequencyBand {
	switch {
	case avgPercentage > 80:
		return BandDominant
	case avgPercentage > 40:
		return BandCommon
	case avgPercentage >= 10:
		return BandIntermittent
	default:
		return BandRare
	}
}

// CalculateConfidenceTrend inspects sample counts ordered oldest to newest.
// More than 70% strictly increasing steps is strengthening, more than 70%
// strictly decreasing is weakening. Anything else is stable.
func CalculateConfidenceTrend(sampleCounts []int) ConfidenceTrend {
	if len(sampleCounts) < minTrendPoints {
		return ConfidenceInsufficientData
	}

	var increasing, decreasing int
	for i := 1; i < len(sampleCounts); i++ {
		switch {
		case sampleCounts[i] > sampleCounts[i-1]:
			increasing++
		case sampleCounts[i] < sampleCounts[i-1]:
			decreasing++
		}
	}

	steps := float64(len(sampleCounts) - 1)
	switch {
	case float64(increasing) > steps*directionalShare:
		return ConfidenceStrengthening
	case float64(decreasing) > steps*directionalShare:
		return ConfidenceWeakening
	default:
		return ConfidenceStable
	}
}

// AssessStability inspects presence per run, oldest to newest. Fewer than
// three runs is emerging. Presence in over 80% of runs is stable. Absence
// from every run before the last three, with presence in at least one of
// them, is emerging. Otherwise volatile.
func AssessStability(presence []bool) Stability {
	if len(presence) < minTrendPoints {
		return StabilityEmerging
	}

	present := 0
	for _, p := range presence {
		if p {
			present++
		}
	}
	if float64(present)/float64(len(presence)) > stablePresenceRate {
		return StabilityStable
	}

	split := len(presence) - recentRuns
	older, recent := presence[:split], presence[split:]
	if !anyTrue(older) && anyTrue(recent) {
		return StabilityEmerging
	}
	return StabilityVolatile
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}
