package boutsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/ringside/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

type actorRequest struct {
	Actor string `json:"actor"`
}

type finalizeAck struct {
	Card struct {
		ScoreString string `json:"score_string"`
	} `json:"card"`
}

// Run executes the complete simulation and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting bout simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("bouts", config.Bouts),
		logger.Int("rounds", config.Rounds),
		logger.Int("eventsPerRound", config.EventsPerRound),
		logger.Int("cameras", config.Cameras),
		logger.Int("retries", config.Retries),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	bouts := Generate(ctx, config, stats)

	for _, b := range bouts {
		if err := runBout(ctx, client, config, b, stats); err != nil {
			return stats, err
		}
	}

	if config.OutputFile != "" {
		if err := savePlan(ctx, config.OutputFile, bouts); err != nil {
			log.Warn(ctx, "failed to save plan", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(stats)
	return stats, nil
}

func runBout(ctx context.Context, client *HTTPClient, config *Config, b Bout, stats *Stats) error {
	for _, r := range b.Rounds {
		base := "/bouts/" + b.ID + "/rounds/" + strconv.Itoa(r.Number)
		if _, err := client.do(ctx, http.MethodPost, base+"/open", nil, nil); err != nil {
			return fmt.Errorf("open round: %w", err)
		}

		stored := submitJudgeEntries(ctx, client, config, r.Judge, stats)
		if stored != len(r.Judge) {
			return fmt.Errorf("%w: %s round %d stored %d judge entries, want %d", ErrVerification, b.ID, r.Number, stored, len(r.Judge))
		}
		detected, err := submitDetections(ctx, client, r.Detections, stats)
		if err != nil {
			return fmt.Errorf("submit detections: %w", err)
		}

		if err := verifyLedger(ctx, client, b.ID, r.Number, stored+detected); err != nil {
			return err
		}

		var ack finalizeAck
		if _, err := client.do(ctx, http.MethodPost, base+"/finalize", actorRequest{Actor: SystemActor}, &ack); err != nil {
			return fmt.Errorf("finalize round: %w", err)
		}
		stats.RoundsFinalized.Add(1)
		logger.Get().Info(ctx, "round finalized",
			logger.String("bout_id", b.ID),
			logger.Int("round", r.Number),
			logger.String("score", ack.Card.ScoreString))
	}

	if err := verifyAudit(ctx, client, b.ID, stats); err != nil {
		return err
	}
	if _, err := client.do(ctx, http.MethodPost, "/bouts/"+b.ID+"/close", actorRequest{Actor: SystemActor}, nil); err != nil {
		return fmt.Errorf("close bout: %w", err)
	}
	stats.BoutsClosed.Add(1)
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// savePlan writes the generated bouts to a JSON file.
func savePlan(ctx context.Context, filename string, bouts []Bout) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(bouts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	logger.Get().Info(ctx, "plan saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted.Load()+stats.DetectionsSubmitted.Load()) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int64("eventsGenerated", stats.EventsGenerated.Load()),
		logger.Int64("eventsSubmitted", stats.EventsSubmitted.Load()),
		logger.Int64("eventsAccepted", stats.EventsAccepted.Load()),
		logger.Int64("eventsDuplicate", stats.EventsDuplicate.Load()),
		logger.Int64("eventsFailed", stats.EventsFailed.Load()),
		logger.Int64("detectionsSubmitted", stats.DetectionsSubmitted.Load()),
		logger.Int64("detectionsAccepted", stats.DetectionsAccepted.Load()),
		logger.Int64("detectionsFused", stats.DetectionsFused.Load()),
		logger.Int64("detectionsRejected", stats.DetectionsRejected.Load()),
		logger.Int64("roundsFinalized", stats.RoundsFinalized.Load()),
		logger.Int64("chainsVerified", stats.ChainsVerified.Load()),
		logger.Int64("boutsClosed", stats.BoutsClosed.Load()),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
