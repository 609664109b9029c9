package types

// Direction is the per-bar directional decision of the signal engine.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Decision is the output of one signal-engine evaluation: a direction plus a
// confidence score in [0, 100]. The score ranks competing signals and feeds
// diagnostics; it does not gate execution unless a minimum-score filter is set
// on the strategy.
type Decision struct {
	Direction Direction `yaml:"direction" json:"direction"`
	Score     float64   `yaml:"score" json:"score"`
	// Reason describes the rule that fired, for logs and marks.
	Reason string `yaml:"reason" json:"reason"`
}

// NoDecision is the zero-signal decision.
func NoDecision() Decision {
	return Decision{
		Direction: DirectionNone,
		Score:     0,
		Reason:    "",
	}
}

// Opposite returns the opposing direction, or DirectionNone for DirectionNone.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNone
	}
}
