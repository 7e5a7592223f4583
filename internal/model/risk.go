package model

// RiskLevel is the qualitative bucket of a risk score.
type RiskLevel int

const (
	// RiskLow is a score below 40.
	RiskLow RiskLevel = iota

	// RiskMedium is a score in [40, 70).
	RiskMedium

	// RiskHigh is a score of 70 or more.
	RiskHigh
)

// Score bounds and level thresholds.
const (
	MinRiskScore        = 0
	MaxRiskScore        = 100
	MediumRiskThreshold = 40
	HighRiskThreshold   = 70
)

// String returns the level name.
func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the level by name.
func (l RiskLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// LevelForScore maps a score to its level.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskAssessment is the reduced view of a ScanReport.
type RiskAssessment struct {
	// Score is always within [MinRiskScore, MaxRiskScore].
	Score int `json:"score"`

	// Level is derived from Score by LevelForScore.
	Level RiskLevel `json:"level"`

	// Details lists one line per fired rule, in rule declaration order.
	Details []string `json:"details"`
}
