// Package scoring computes deterministic round score cards from accepted events.
package scoring

import (
	"math"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/rules"
)

// Score values on a ten-point must card.
const (
	winnerPoints  = 10
	clearLoser    = 9
	dominantLoser = 8
	crushedLoser  = 7
)

// OverrideDamagePrimacy marks a card whose result was forced or raised by knockdowns.
const OverrideDamagePrimacy = "damage_primacy"

// Outcome is the result of the gates for one round.
type Outcome struct {
	Red      int
	Blue     int
	Winner   model.Corner
	Override string
}

// String renders the outcome as "<red>-<blue>".
func (o Outcome) String() string {
	return model.ScoreString(o.Red, o.Blue)
}

// Decide evaluates the differential gates, then lets damage primacy force or raise the result.
// Primacy never lowers what the numeric gates already gave the same corner.
func Decide(r *rules.Rules, red, blue *model.CornerBreakdown) Outcome {
	diff := red.Total - blue.Total
	var winner model.Corner
	loser := winnerPoints
	if diff != 0 && math.Abs(diff) >= r.Gates.Draw {
		winner = leader(diff)
		switch margin := math.Abs(diff); {
		case margin > r.Gates.Threshold107:
			loser = crushedLoser
		case margin > r.Gates.Threshold108:
			loser = dominantLoser
		default:
			loser = clearLoser
		}
	}

	var override string
	p := red.Primacy - blue.Primacy
	if ap := math.Abs(p); ap >= r.Primacy.WinnerThreshold {
		forced := leader(p)
		forcedLoser := clearLoser
		switch {
		case ap >= r.Primacy.Threshold107:
			forcedLoser = crushedLoser
		case ap >= r.Primacy.Threshold108:
			forcedLoser = dominantLoser
		}
		switch {
		case winner != forced:
			winner, loser, override = forced, forcedLoser, OverrideDamagePrimacy
		case forcedLoser < loser:
			loser, override = forcedLoser, OverrideDamagePrimacy
		}
	}

	o := Outcome{Red: winnerPoints, Blue: winnerPoints, Winner: winner, Override: override}
	switch winner {
	case model.CornerRed:
		o.Blue = loser
	case model.CornerBlue:
		o.Red = loser
	}
	return o
}

func leader(diff float64) model.Corner {
	if diff > 0 {
		return model.CornerRed
	}
	return model.CornerBlue
}
