package boutsim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
)

// ErrVerification marks a server state that disagrees with what was submitted.
var ErrVerification = errors.New("verification failed")

// verifyLedger checks one round's ledger is intact and holds exactly want entries.
func verifyLedger(ctx context.Context, client *HTTPClient, boutID string, round, want int) error {
	var res model.VerificationResult
	path := "/bouts/" + boutID + "/rounds/" + strconv.Itoa(round) + "/ledger/verify"
	if _, err := client.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("%w: %s round %d ledger tampered: %s", ErrVerification, boutID, round, res.TamperDetails)
	}
	if res.TotalEntries != want {
		return fmt.Errorf("%w: %s round %d ledger holds %d entries, want %d", ErrVerification, boutID, round, res.TotalEntries, want)
	}
	return nil
}

// verifyAudit checks the bout's audit chain is intact.
func verifyAudit(ctx context.Context, client *HTTPClient, boutID string, stats *Stats) error {
	var res model.VerificationResult
	if _, err := client.do(ctx, http.MethodGet, "/bouts/"+boutID+"/audit/verify", nil, &res); err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("%w: %s audit chain tampered at %v: %s", ErrVerification, boutID, res.TamperDetectedAt, res.TamperDetails)
	}
	stats.ChainsVerified.Add(1)
	logger.Get().Debug(ctx, "audit chain verified", logger.String("bout_id", boutID), logger.Int("entries", res.TotalEntries))
	return nil
}
