// Package boutsim drives synthetic bouts against a running scoring server.
package boutsim

import (
	"sync/atomic"
	"time"

	"github.com/okian/ringside/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Bouts           int           // Number of bouts to simulate
	Rounds          int           // Rounds per bout
	EventsPerRound  int           // Judge entries per round
	ActionsPerRound int           // Detected actions per round, each seen by every camera
	Cameras         int           // Detector vendors watching each bout
	Retries         int           // Extra resubmissions of every judge entry
	Workers         int           // Concurrent submitters
	Timeout         time.Duration // HTTP request timeout
	OutputFile      string        // Optional JSON dump of the generated plan
	LogFile         string        // Optional log file
	Verbose         bool          // Debug logging
}

// Round is the generated input of one round.
type Round struct {
	Number     int                 `json:"number"`
	Judge      []model.CombatEvent `json:"judge"`
	Detections []model.CombatEvent `json:"detections"`
}

// Bout is the generated input of one bout.
type Bout struct {
	ID     string  `json:"id"`
	Rounds []Round `json:"rounds"`
}

// Stats holds run statistics. Counters are updated concurrently.
type Stats struct {
	EventsGenerated     atomic.Int64
	EventsSubmitted     atomic.Int64
	EventsAccepted      atomic.Int64
	EventsDuplicate     atomic.Int64
	EventsFailed        atomic.Int64
	DetectionsSubmitted atomic.Int64
	DetectionsAccepted  atomic.Int64
	DetectionsFused     atomic.Int64
	DetectionsRejected  atomic.Int64
	RoundsFinalized     atomic.Int64
	ChainsVerified      atomic.Int64
	BoutsClosed         atomic.Int64
	StartTime           time.Time
	Duration            time.Duration
}
