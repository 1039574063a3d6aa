package actuation

import (
	"github.com/itohio/thermoctl/pkg/settings"
)

// Bucket is one of the four threshold-delimited temperature ranges.
type Bucket int

const (
	Cold   Bucket = iota // temp < min
	Stable               // min <= temp < mid
	High                 // mid <= temp < max
	Heated               // temp >= max
)

func (b Bucket) String() string {
	switch b {
	case Cold:
		return "Cold"
	case Stable:
		return "Stable"
	case High:
		return "High"
	case Heated:
		return "Heated"
	default:
		return "Unknown"
	}
}

// Indicators is the state of the three status lights.
type Indicators struct {
	Green  bool `json:"green"`
	Yellow bool `json:"yellow"`
	Red    bool `json:"red"`
}

// Decision is what the outputs should show for one reading.
type Decision struct {
	Bucket     Bucket
	Duty       float32
	Indicators Indicators
}

// Off is the all-outputs-zero decision used by the override flows.
var Off = Decision{Bucket: Cold, Duty: 0, Indicators: Indicators{}}

var decisions = [...]Decision{
	Cold:   {Cold, 0.0, Indicators{Yellow: true}},
	Stable: {Stable, 0.3, Indicators{Green: true, Yellow: true}},
	High:   {High, 0.6, Indicators{Green: true, Red: true}},
	Heated: {Heated, 1.0, Indicators{Red: true}},
}

// Classify places temp in its bucket using strict less-than comparisons, so
// a reading equal to a threshold falls into the bucket above it.
func Classify(temp float32, th settings.Thresholds) Bucket {
	switch {
	case temp < float32(th.Min):
		return Cold
	case temp < float32(th.Mid):
		return Stable
	case temp < float32(th.Max):
		return High
	default:
		return Heated
	}
}

// Evaluate maps a reading and thresholds to duty and indicators.
func Evaluate(temp float32, th settings.Thresholds) Decision {
	return decisions[Classify(temp, th)]
}
