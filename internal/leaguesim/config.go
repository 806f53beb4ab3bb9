package leaguesim

import "time"

// Config holds configuration for a simulation run against a live service.
type Config struct {
	BaseURL    string        // Base URL of the service
	League     LeagueConfig  // Shape of the synthetic league
	BatchSize  int           // Matches per POST /matches request
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	TrainWait  time.Duration // Timeout of the POST /train request
	TopN       int           // Ratings fetched for verification
	OutputFile string        // Output file for generated matches
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// LeagueConfig shapes a synthetic league.
type LeagueConfig struct {
	Teams    int     // Number of participants, rounded up to even
	Seasons  int     // Number of seasons played
	Rounds   int     // Rounds per season; every team plays once per round
	Upcoming int     // Unplayed rounds appended after the last season
	HomeEdge float64 // Points added to every home margin
	Spread   float64 // Standard deviation of latent strengths
	Noise    float64 // Standard deviation of a single match margin
	Seed     int64
}

// DefaultLeague is a small two-season league.
func DefaultLeague() LeagueConfig {
	return LeagueConfig{
		Teams:    12,
		Seasons:  2,
		Rounds:   30,
		Upcoming: 2,
		HomeEdge: 3,
		Spread:   6,
		Noise:    10,
		Seed:     1,
	}
}

// Stats holds run statistics.
type Stats struct {
	MatchesGenerated  int
	MatchesSubmitted  int
	MatchesAccepted   int
	MatchesDuplicate  int
	MatchesFailed     int
	EntriesPredicted  int
	EntriesMissing    int
	RatingsRetrieved  int
	StrengthCorr      float64
	WinnerAccuracy    float64
	TrainingDuration  time.Duration
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
