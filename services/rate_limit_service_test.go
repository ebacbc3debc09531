package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_CheckLimitWithinLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitService(client)

	mock.ExpectIncr("rate_limit:jobs:10.0.0.1").SetVal(3)
	mock.ExpectExpire("rate_limit:jobs:10.0.0.1", time.Minute).SetVal(true)

	allowed, retryAfter, err := svc.CheckLimit(context.Background(), "jobs:10.0.0.1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitService_CheckLimitExceeded(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitService(client)

	mock.ExpectIncr("rate_limit:jobs:10.0.0.1").SetVal(11)
	mock.ExpectExpire("rate_limit:jobs:10.0.0.1", time.Minute).SetVal(true)
	mock.ExpectTTL("rate_limit:jobs:10.0.0.1").SetVal(42 * time.Second)

	allowed, retryAfter, err := svc.CheckLimit(context.Background(), "jobs:10.0.0.1", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 42*time.Second, retryAfter)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitService_CheckLimitRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitService(client)

	mock.ExpectIncr("rate_limit:jobs:10.0.0.1").SetErr(errors.New("connection refused"))
	mock.ExpectExpire("rate_limit:jobs:10.0.0.1", time.Minute).SetVal(true)

	allowed, _, err := svc.CheckLimit(context.Background(), "jobs:10.0.0.1", 10, time.Minute)
	require.Error(t, err)
	assert.False(t, allowed)
}
