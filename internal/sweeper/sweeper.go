package sweeper

import (
	"context"
	"time"

	"carrykind-backend/internal/claims"
	"carrykind-backend/internal/waitlist"

	"github.com/rs/zerolog/log"
)

const DefaultInterval = time.Minute

// Sweeper periodically expires stalled pending-verification claims and lapsed
// waitlist invitations so their totes return to the pool.
type Sweeper struct {
	Claims   *claims.Service
	Waitlist *waitlist.Service
	Interval time.Duration
}

func New(claimsSvc *claims.Service, waitlistSvc *waitlist.Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{Claims: claimsSvc, Waitlist: waitlistSvc, Interval: interval}
}

// Run blocks until ctx is cancelled, sweeping every Interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass of both sweeps.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	expiredClaims, err := s.Claims.SweepStalled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweeper: claim sweep failed")
	} else if expiredClaims > 0 {
		log.Info().Int("expired", expiredClaims).Msg("sweeper: expired stalled claims")
	}

	expiredInvites, err := s.Waitlist.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweeper: waitlist sweep failed")
	} else if expiredInvites > 0 {
		log.Info().Int("expired", expiredInvites).Msg("sweeper: expired waitlist invitations")
	}
}
