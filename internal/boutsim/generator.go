package boutsim

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
)

const randomFloatDivisor = 1000000

var (
	strikes  = []model.EventType{model.EventJab, model.EventCross, model.EventHook, model.EventUppercut, model.EventBodyKick, model.EventLegKick}
	damaging = []model.EventType{model.EventHeadKick, model.EventElbow, model.EventKnee, model.EventRocked}
	tiers    = []model.Tier{model.TierFlash, model.TierHard, model.TierNearFinish}
	corners  = []model.Corner{model.CornerRed, model.CornerBlue}
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func pick[T any](xs []T) T { return xs[randomInt(len(xs))] }

// Generate builds the plan for every bout of the run.
func Generate(ctx context.Context, config *Config, stats *Stats) []Bout {
	bouts := make([]Bout, config.Bouts)
	for b := range bouts {
		bouts[b] = Bout{ID: "bout-" + uuid.NewString()}
		for r := 1; r <= config.Rounds; r++ {
			round := Round{
				Number:     r,
				Judge:      judgeEntries(bouts[b].ID, r, config.EventsPerRound),
				Detections: detections(bouts[b].ID, r, config.ActionsPerRound, config.Cameras),
			}
			stats.EventsGenerated.Add(int64(len(round.Judge) + len(round.Detections)))
			bouts[b].Rounds = append(bouts[b].Rounds, round)
		}
	}
	logger.Get().Info(ctx, "generated bouts",
		logger.Int("bouts", len(bouts)),
		logger.Int64("events", stats.EventsGenerated.Load()))
	return bouts
}

func judgeEntries(boutID string, round, n int) []model.CombatEvent {
	out := make([]model.CombatEvent, 0, n)
	for i := 0; i < n; i++ {
		judge := "judge-" + strconv.Itoa(i%3+1)
		e := model.CombatEvent{
			BoutID:      boutID,
			Round:       round,
			ActorID:     judge,
			Corner:      pick(corners),
			EventType:   pick(strikes),
			Severity:    getRandomFloat(),
			Confidence:  1,
			TimestampMS: int64(i*actionSpacingMS) % roundLengthMS,
			Source:      model.SourceManual,
			DeviceID:    "tablet-" + judge,
		}
		switch randomInt(20) {
		case 0:
			e.EventType = model.EventKnockdown
			e.Tier = pick(tiers)
		case 1:
			e.EventType = model.EventControl
			e.ControlType = "back_control"
			e.DurationMS = int64(5000 + randomInt(25000))
		case 2:
			e.EventType = model.EventTakedownLanded
		}
		out = append(out, e)
	}
	return out
}

// detections returns every camera's view of n actions. Views of one action fall inside the fusion window.
func detections(boutID string, round, n, cameras int) []model.CombatEvent {
	out := make([]model.CombatEvent, 0, n*cameras)
	for i := 0; i < n; i++ {
		corner, kind := pick(corners), pick(damaging)
		at := int64(i*actionSpacingMS) % roundLengthMS
		for c := 0; c < cameras; c++ {
			confidence := 0.7 + 0.3*getRandomFloat()
			if getRandomFloat() < lowConfidenceRate {
				confidence = 0.5 * getRandomFloat()
			}
			vendor := "cam-" + strconv.Itoa(c+1)
			out = append(out, model.CombatEvent{
				BoutID:      boutID,
				Round:       round,
				ActorID:     "cv",
				Corner:      corner,
				EventType:   kind,
				Severity:    getRandomFloat(),
				Confidence:  confidence,
				TimestampMS: at + int64(randomInt(cameraJitterMS)),
				Source:      model.SourceAutomated,
				VendorID:    vendor,
				DeviceID:    vendor,
			})
		}
	}
	return out
}
