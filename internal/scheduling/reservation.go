package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// DefaultReservationTTL bounds how long a crashed booking can hold a slot
const DefaultReservationTTL = 10 * time.Second

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisReserver claims slots with SET NX PX so concurrent bookings of the
// same doctor and time are serialized before they reach the store
type RedisReserver struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisReserver creates a reserver on client
func NewRedisReserver(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisReserver {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &RedisReserver{client: client, ttl: ttl, logger: log}
}

func reservationKey(doctorID string, ts time.Time) string {
	return fmt.Sprintf("slot:%s:%s", doctorID, ts.UTC().Format(time.RFC3339))
}

// Reserve claims the slot or returns a conflict when another booking holds it
func (rr *RedisReserver) Reserve(ctx context.Context, doctorID string, ts time.Time) (func(), error) {
	key := reservationKey(doctorID, ts)
	token := uuid.New().String()

	ok, err := rr.client.SetNX(ctx, key, token, rr.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve slot: %w", err)
	}
	if !ok {
		return nil, types.NewConflictError(types.ErrCodeSlotUnavailable, "slot is being booked by another request", nil)
	}

	release := func() {
		// the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, rr.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			rr.logger.WithError(err).WithField("key", key).Warn("Failed to release slot reservation")
		}
	}
	return release, nil
}

// NoopReserver is used when Redis is disabled. The store's unique
// constraint remains the only guard.
type NoopReserver struct{}

// Reserve always succeeds
func (NoopReserver) Reserve(ctx context.Context, doctorID string, ts time.Time) (func(), error) {
	return func() {}, nil
}

var (
	_ interfaces.SlotReserver = (*RedisReserver)(nil)
	_ interfaces.SlotReserver = NoopReserver{}
)
