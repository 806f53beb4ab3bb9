package leaguesim

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	matchDayGap          = 2 * 24 * time.Hour
	seasonGap            = 120 * 24 * time.Hour
	baseScore            = 100.0
)

// Verification thresholds.
const (
	minStrengthCorrelation = 0.5
)
