package verification

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	challengePrefix = "challenge:"
	challengeTTL    = 10 * time.Minute
)

// Challenge is the Redis value bound to (channel, identity, purpose). Used
// challenges are kept for the remaining TTL so a replay is reported as
// already used rather than expired.
type Challenge struct {
	Channel  string `json:"channel"`
	Identity string `json:"identity"`
	Purpose  string `json:"purpose"`
	Code     string `json:"code"`
	Used     bool   `json:"used"`
}

// Service issues and checks short-lived OTP challenges for the email and
// phone channels. QR and sponsor-link claims need no challenge, and
// magic-link tokens are validated by the waitlist, not here. Rate limiting is
// the caller's concern; this service only enforces TTL and single use.
type Service struct {
	Rdb *redis.Client
	TTL time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return challengeTTL
}

// IssueChallenge mints a 6-digit code bound to (channel, identity, purpose)
// and stores it under a fresh challenge id with the configured TTL. The code
// is returned so the caller can hand it to the notification dispatcher.
func (s *Service) IssueChallenge(ctx context.Context, channel, identity, purpose string) (string, string, error) {
	code, err := sixDigitCode()
	if err != nil {
		return "", "", err
	}
	challengeID := uuid.New().String()
	b, _ := json.Marshal(Challenge{
		Channel:  channel,
		Identity: identity,
		Purpose:  purpose,
		Code:     code,
	})
	if err := s.Rdb.Set(ctx, challengePrefix+challengeID, b, s.ttl()).Err(); err != nil {
		return "", "", err
	}
	return challengeID, code, nil
}

// Verify checks the code against the stored challenge and consumes it on
// success. Expired (or unknown) challenges, wrong codes and replays each get
// their own error so the caller can offer the right recovery.
func (s *Service) Verify(ctx context.Context, challengeID, code string) error {
	key := challengePrefix + challengeID

	// WATCH makes consumption atomic: of two racing verifies with the correct
	// code, the loser's EXEC fails and its retry sees the used flag.
	check := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrChallengeExpired
		} else if err != nil {
			return err
		}
		var ch Challenge
		if err := json.Unmarshal(b, &ch); err != nil {
			return ErrChallengeExpired
		}
		if ch.Used {
			return ErrChallengeUsed
		}
		if ch.Code != code {
			return ErrCodeMismatch
		}
		ch.Used = true
		used, _ := json.Marshal(ch)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, used, redis.KeepTTL)
			return nil
		})
		return err
	}

	for {
		err := s.Rdb.Watch(ctx, check, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
}

// Resend invalidates the previous challenge and issues a new one for the same
// identity and purpose with a fresh TTL. If the old challenge already expired
// the caller must issue a new one itself (it still knows the identity).
func (s *Service) Resend(ctx context.Context, challengeID string) (string, string, error) {
	key := challengePrefix + challengeID
	b, err := s.Rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return "", "", ErrChallengeExpired
	} else if err != nil {
		return "", "", err
	}
	var ch Challenge
	if err := json.Unmarshal(b, &ch); err != nil {
		return "", "", ErrChallengeExpired
	}
	if err := s.Rdb.Del(ctx, key).Err(); err != nil {
		return "", "", err
	}
	return s.IssueChallenge(ctx, ch.Channel, ch.Identity, ch.Purpose)
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
