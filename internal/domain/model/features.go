package model

import "time"

// NoValue is written into schedule columns that cannot be computed.
const NoValue = -1.0

// FeatureRow is the leakage-free feature vector of one match. HomeSourceSeq
// and AwaySourceSeq name the prior match each side's state was taken from;
// both are strictly less than Seq.
type FeatureRow struct {
	Key           MatchKey
	Seq           int
	Date          time.Time
	Home          string
	Away          string
	Values        []float64
	HomeSourceSeq int
	AwaySourceSeq int
	Target        float64
}

// Forecast is the prediction for one schedule entry.
type Forecast struct {
	Entry       ScheduleEntry
	Margin      float64
	HomeWinProb float64
	HomeRating  float64
	AwayRating  float64
	Values      []float64
}
