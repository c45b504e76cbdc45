package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// ReconcileService retries the booking status patch for charges the
// processor accepted but the backend never recorded.
type ReconcileService struct {
	backend domain.BackendClient
	ledger  domain.AttemptLedger
	token   string
	workers int
}

func NewReconcileService(b domain.BackendClient, l domain.AttemptLedger, serviceToken string, workers int) *ReconcileService {
	if workers <= 0 {
		workers = 4
	}
	return &ReconcileService{backend: b, ledger: l, token: serviceToken, workers: workers}
}

type ReconcileResult struct {
	Checked    int
	Reconciled int
	Failed     int
}

// Run processes up to limit unreconciled attempts with bounded concurrency.
// Per-attempt failures are recorded on the ledger row, not returned.
func (s *ReconcileService) Run(ctx context.Context, limit int) (ReconcileResult, error) {
	attempts, err := s.ledger.ListUnreconciled(ctx, limit)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list unreconciled: %w", err)
	}

	var ok, failed int64
	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup

	for _, a := range attempts {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context canceled; let in-flight work finish
		}
		wg.Add(1)
		go func(a domain.PaymentAttempt) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.reconcileOne(ctx, a); err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn().Int64("attempt", a.ID).Str("booking", a.BookingID).Err(err).Msg("reconcile failed")
				return
			}
			atomic.AddInt64(&ok, 1)
			log.Info().Int64("attempt", a.ID).Str("booking", a.BookingID).Msg("reconciled")
		}(a)
	}
	wg.Wait()

	res := ReconcileResult{Checked: len(attempts), Reconciled: int(ok), Failed: int(failed)}
	return res, ctx.Err()
}

func (s *ReconcileService) reconcileOne(ctx context.Context, a domain.PaymentAttempt) error {
	_, err := s.backend.UpdatePaymentStatus(ctx, s.token, a.BookingID, domain.PaymentStatusPaid, a.PaymentIntentID)
	if err != nil {
		reason := err.Error()
		switch {
		case errors.Is(err, domain.ErrNotFound):
			reason = "booking not found: " + reason
		case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
			reason = "service token rejected: " + reason
		}
		observability.ObservePayment("reconcile", "failed")
		if merr := s.ledger.MarkFailed(ctx, a.ID, reason); merr != nil {
			return errors.Join(err, merr)
		}
		return err
	}
	observability.ObservePayment("reconcile", "ok")
	return s.ledger.MarkReconciled(ctx, a.ID)
}
