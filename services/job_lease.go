package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease key only if it still holds our token, so a
// slow run cannot release a lease that already expired and was re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// JobLease serializes job runs across processes using a Redis key with TTL.
// The scheduler's duplicate guards are race-free on their own (unique
// constraints back them), so the lease is about avoiding wasted overlapping
// work and double push dispatch when the trigger double-fires.
type JobLease struct {
	redis     *redis.Client
	keyPrefix string
}

// NewJobLease creates a lease manager on the given Redis client.
func NewJobLease(redisClient *redis.Client) *JobLease {
	return &JobLease{
		redis:     redisClient,
		keyPrefix: "jobs:lease:",
	}
}

// Acquire attempts to take the lease for a job. On success it returns a
// release function to call when the run finishes. ok is false when another
// run currently holds the lease.
func (l *JobLease) Acquire(ctx context.Context, job string, ttl time.Duration) (release func(), ok bool, err error) {
	key := l.keyPrefix + job
	token := uuid.NewString()

	ok, err = l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease for job %s: %w", job, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// Best effort: the TTL reclaims the lease if the release is lost.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err()
	}
	return release, true, nil
}
