// Package scoring computes deterministic round score cards from accepted events.
package scoring

import (
	"sort"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/rules"
)

type controlKey struct {
	corner      model.Corner
	controlType string
}

// ControlWindows extracts control spans from events. Explicit control events carry their own
// duration; control_start/control_end pair up per (corner, control_type) and a start left open
// closes at the last event time. Events must be sorted by timestamp.
func ControlWindows(events []model.CombatEvent) []model.ControlWindow {
	var windows []model.ControlWindow
	open := make(map[controlKey]int64)
	var openOrder []controlKey
	var last int64

	for i := range events {
		e := &events[i]
		if e.TimestampMS > last {
			last = e.TimestampMS
		}
		k := controlKey{corner: e.Corner, controlType: e.ControlType}
		switch e.EventType {
		case model.EventControl:
			windows = append(windows, model.ControlWindow{
				Corner:      e.Corner,
				ControlType: e.ControlType,
				StartMS:     e.TimestampMS,
				EndMS:       e.TimestampMS + e.DurationMS,
			})
		case model.EventControlStart:
			if _, ok := open[k]; !ok {
				open[k] = e.TimestampMS
				openOrder = append(openOrder, k)
			}
		case model.EventControlEnd:
			if start, ok := open[k]; ok {
				windows = append(windows, model.ControlWindow{
					Corner:      e.Corner,
					ControlType: e.ControlType,
					StartMS:     start,
					EndMS:       e.TimestampMS,
				})
				delete(open, k)
			}
		}
	}
	for _, k := range openOrder {
		if start, ok := open[k]; ok {
			windows = append(windows, model.ControlWindow{
				Corner:      k.corner,
				ControlType: k.controlType,
				StartMS:     start,
				EndMS:       last,
			})
		}
	}
	return windows
}

// ControlValue returns the decayed control-time value per corner.
//
// Windows are grouped per (corner, control_type) and walked in start order. Group sums are
// added in key order so repeated calls produce identical totals. A gap of at least
// gap_reset_ms since the previous window resets the continuous counter. Every full bucket is
// worth the type's points while the counter stays within threshold_ms and decay_fraction of
// that beyond it. The trailing partial bucket scores nothing but still advances the counter.
func ControlValue(r *rules.Rules, windows []model.ControlWindow) map[model.Corner]float64 {
	groups := make(map[controlKey][]model.ControlWindow)
	for _, w := range windows {
		k := controlKey{corner: w.Corner, controlType: w.ControlType}
		groups[k] = append(groups[k], w)
	}

	keys := make([]controlKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].corner != keys[j].corner {
			return keys[i].corner < keys[j].corner
		}
		return keys[i].controlType < keys[j].controlType
	})

	out := map[model.Corner]float64{model.CornerRed: 0, model.CornerBlue: 0}
	bucket := r.Control.BucketMS
	for _, k := range keys {
		ws := groups[k]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].StartMS < ws[j].StartMS })
		points := r.ControlPoints(k.controlType)

		var sum float64
		var counter, prevEnd int64
		for i, w := range ws {
			if i > 0 && w.StartMS-prevEnd >= r.Control.GapResetMS {
				counter = 0
			}
			d := w.DurationMS()
			for full := d / bucket; full > 0; full-- {
				if counter+bucket <= r.Control.ThresholdMS {
					sum += points
				} else {
					sum += points * r.Control.DecayFraction
				}
				counter += bucket
			}
			counter += d % bucket
			if i == 0 || w.EndMS > prevEnd {
				prevEnd = w.EndMS
			}
		}
		out[k.corner] += sum
	}
	return out
}
