package core

import "fmt"

const (
	// Hard physiological range accepted at ingest.
	MinValidBPM = 30
	MaxValidBPM = 220

	// Thresholds used when no medical profile has been provided.
	DefaultMaxSafeBPM = 120
	DefaultMinSafeBPM = 60
)

// Recognized heart condition tags. Wire values match the sensor product's
// provisioning data.
const (
	ConditionNone         = ""
	ConditionArrhythmia   = "arritmia"
	ConditionTachycardia  = "taquicardia"
	ConditionBradycardia  = "bradicardia"
	ConditionHypertension = "hipertension"
	ConditionIschemic     = "cardiopatia"
)

var validConditions = map[string]struct{}{
	ConditionNone:         {},
	ConditionArrhythmia:   {},
	ConditionTachycardia:  {},
	ConditionBradycardia:  {},
	ConditionHypertension: {},
	ConditionIschemic:     {},
}

func IsValidCondition(condition string) bool {
	_, ok := validConditions[condition]
	return ok
}

// ValidateBPM rejects readings outside the hard physiological range.
func ValidateBPM(bpm int) error {
	if bpm < MinValidBPM || bpm > MaxValidBPM {
		return fmt.Errorf("%w: %d", ErrOutOfRange, bpm)
	}
	return nil
}

type AlertKind string

const (
	AlertTachycardia AlertKind = "tachycardia"
	AlertBradycardia AlertKind = "bradycardia"
)

// Alert describes why a reading breached the safe band.
type Alert struct {
	Kind    AlertKind
	Message string
}

// Classify evaluates a reading against the account's safe band. Zero
// thresholds fall back to the defaults. The classification is frozen into
// the reading at ingest time; later threshold changes never rewrite it.
func Classify(bpm, maxSafe, minSafe int) (bool, *Alert) {
	if maxSafe <= 0 {
		maxSafe = DefaultMaxSafeBPM
	}
	if minSafe <= 0 {
		minSafe = DefaultMinSafeBPM
	}

	if bpm > maxSafe {
		return true, &Alert{
			Kind:    AlertTachycardia,
			Message: fmt.Sprintf("ALERT: Tachycardia (%d > %d BPM)", bpm, maxSafe),
		}
	}
	if bpm < minSafe {
		return true, &Alert{
			Kind:    AlertBradycardia,
			Message: fmt.Sprintf("ALERT: Bradycardia (%d < %d BPM)", bpm, minSafe),
		}
	}
	return false, nil
}

// SafeLimits derives the safe BPM band from age and heart condition.
// base = 220 - age, scaled per condition with integer truncation. When
// either input is missing the defaults apply. Deterministic: the same
// profile always yields the same band.
func SafeLimits(age int, condition string) (maxSafe, minSafe int) {
	if age <= 0 || condition == ConditionNone {
		return DefaultMaxSafeBPM, DefaultMinSafeBPM
	}

	base := 220 - age

	switch condition {
	case ConditionArrhythmia:
		return int(float64(base) * 0.70), 50
	case ConditionTachycardia:
		return int(float64(base) * 0.60), 60
	case ConditionBradycardia:
		return int(float64(base) * 0.80), 40
	default:
		return int(float64(base) * 0.85), 55
	}
}

const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendWorsening = "worsening"
)

// Trend classifies the direction of a user's average BPM by comparing the
// recent window against the older one.
func Trend(recentAvg, olderAvg float64) string {
	switch {
	case recentAvg < olderAvg:
		return TrendImproving
	case recentAvg == olderAvg:
		return TrendStable
	default:
		return TrendWorsening
	}
}
