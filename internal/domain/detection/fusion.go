// Package detection filters raw detections and fuses multi-camera views of the same action.
package detection

import (
	"sort"

	"github.com/okian/ringside/internal/domain/model"
)

// Candidate is a single detection or the canonical event of a fused cluster.
type Candidate struct {
	Event     model.CombatEvent
	Canonical bool
	Vendors   []string
	// Members are the batch indices that contributed to this candidate, earliest first.
	Members []int
}

// Fuse merges detections of the same key from distinct vendors whose timestamps fall within
// windowMS of the first member of their cluster. The canonical event takes the mean
// confidence, the max severity and the earliest timestamp. Candidates come back in
// timestamp order.
func Fuse(batch []model.CombatEvent, windowMS int64) []Candidate {
	idx := make([]int, len(batch))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return batch[idx[a]].TimestampMS < batch[idx[b]].TimestampMS
	})

	open := make(map[Key]*Candidate)
	var out []*Candidate
	for _, i := range idx {
		e := batch[i]
		k := KeyOf(&e)
		if c, ok := open[k]; ok && joinable(c, &e, windowMS) {
			c.Members = append(c.Members, i)
			c.Vendors = append(c.Vendors, e.VendorID)
			continue
		}
		c := &Candidate{Event: e, Members: []int{i}}
		if e.VendorID != "" {
			c.Vendors = []string{e.VendorID}
		}
		open[k] = c
		out = append(out, c)
	}

	res := make([]Candidate, 0, len(out))
	for _, c := range out {
		if len(c.Members) > 1 {
			merge(c, batch)
		}
		res = append(res, *c)
	}
	return res
}

func joinable(c *Candidate, e *model.CombatEvent, windowMS int64) bool {
	if e.VendorID == "" || len(c.Vendors) == 0 {
		return false
	}
	if e.TimestampMS-c.Event.TimestampMS > windowMS {
		return false
	}
	for _, v := range c.Vendors {
		if v == e.VendorID {
			return false
		}
	}
	return true
}

func merge(c *Candidate, batch []model.CombatEvent) {
	var sum float64
	for _, i := range c.Members {
		m := batch[i]
		sum += m.Confidence
		if m.Severity > c.Event.Severity {
			c.Event.Severity = m.Severity
		}
	}
	c.Event.Confidence = sum / float64(len(c.Members))
	c.Canonical = true
}
