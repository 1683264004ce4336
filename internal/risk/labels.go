package risk

// Label is a categorical risk level for a hazard axis, ordered
// none < low < medium < high.
type Label string

const (
	LabelNone   Label = "none"
	LabelLow    Label = "low"
	LabelMedium Label = "medium"
	LabelHigh   Label = "high"
)

// Rank returns the label's position in the none<low<medium<high ordering.
func (l Label) Rank() int {
	switch l {
	case LabelLow:
		return 1
	case LabelMedium:
		return 2
	case LabelHigh:
		return 3
	default:
		return 0
	}
}

// Categorize maps a zone risk_value to a label. The 1.5/2.5 thresholds are
// a fixed contract; downstream color-coding depends on them.
func Categorize(riskValue *float64) Label {
	if riskValue == nil {
		return LabelNone
	}
	switch {
	case *riskValue <= 1.5:
		return LabelLow
	case *riskValue <= 2.5:
		return LabelMedium
	default:
		return LabelHigh
	}
}

// MagnitudeClass is a Richter-style magnitude bin.
type MagnitudeClass string

const (
	MagnitudeMicro    MagnitudeClass = "micro"
	MagnitudeMinor    MagnitudeClass = "minor"
	MagnitudeLight    MagnitudeClass = "light"
	MagnitudeModerate MagnitudeClass = "moderate"
	MagnitudeStrong   MagnitudeClass = "strong"
	MagnitudeMajor    MagnitudeClass = "major"
	MagnitudeGreat    MagnitudeClass = "great"
)

// CategorizeMagnitude bins a magnitude at 2.0, 4.0, 5.0, 6.0, 7.0 and 8.0.
// Each bin is exclusive of its upper bound; 8.0 and above is great.
func CategorizeMagnitude(magnitude float64) MagnitudeClass {
	switch {
	case magnitude < 2.0:
		return MagnitudeMicro
	case magnitude < 4.0:
		return MagnitudeMinor
	case magnitude < 5.0:
		return MagnitudeLight
	case magnitude < 6.0:
		return MagnitudeModerate
	case magnitude < 7.0:
		return MagnitudeStrong
	case magnitude < 8.0:
		return MagnitudeMajor
	default:
		return MagnitudeGreat
	}
}

// HeatLevel categorizes heat stress from temperature and humidity.
type HeatLevel string

const (
	HeatUnknown  HeatLevel = "unknown"
	HeatLow      HeatLevel = "low"
	HeatModerate HeatLevel = "moderate"
	HeatHigh     HeatLevel = "high"
	HeatExtreme  HeatLevel = "extreme"
)

// HeatCategory evaluates the extreme rule first because the conditions
// overlap: a 40°C/70% reading satisfies both the extreme and high rules.
func HeatCategory(temperatureC, humidityPct *float64) HeatLevel {
	if temperatureC == nil || humidityPct == nil {
		return HeatUnknown
	}
	t, h := *temperatureC, *humidityPct
	switch {
	case t >= 40 || (t >= 35 && h >= 60):
		return HeatExtreme
	case t >= 35 || (t >= 32 && h >= 60):
		return HeatHigh
	case t >= 30:
		return HeatModerate
	default:
		return HeatLow
	}
}
