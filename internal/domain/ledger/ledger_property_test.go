package ledger_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/ledger"
)

// Property: N submissions of one fingerprint store one entry and report one index.
func TestLedgerIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resubmission never consumes a sequence index", prop.ForAll(
		func(ts int64, n int) bool {
			ctx := context.Background()
			store := repository.NewMemoryStore()
			l := ledger.New(store)

			first, err := l.Submit(ctx, jab(ts, "tablet-1"))
			if err != nil {
				return false
			}
			for i := 0; i < n; i++ {
				res, err := l.Submit(ctx, jab(ts, "tablet-1"))
				if err != nil || !res.IsDuplicate || res.Entry.SequenceIndex != first.Entry.SequenceIndex {
					return false
				}
			}
			entries, _ := store.LedgerEntries(ctx, "bout-1", 1)
			return len(entries) == 1
		},
		gen.Int64Range(0, 600_000),
		gen.IntRange(1, 20),
	))

	properties.Property("ledgers built by Submit always verify", prop.ForAll(
		func(stamps []int64) bool {
			ctx := context.Background()
			l := ledger.New(repository.NewMemoryStore())
			for _, ts := range stamps {
				if _, err := l.Submit(ctx, jab(ts, "tablet-1")); err != nil {
					return false
				}
			}
			entries, _ := l.Entries(ctx, "bout-1", 1)
			if len(entries) == 0 {
				return true
			}
			res := ledger.VerifyEntries(entries)
			return res.Valid && res.VerifiedEntries == len(entries)
		},
		gen.SliceOf(gen.Int64Range(0, 300_000)),
	))

	properties.TestingRun(t)
}
