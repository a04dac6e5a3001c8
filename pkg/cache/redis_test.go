package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheSetGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "wisetrade")
	ctx := context.Background()

	mock.ExpectSet("wisetrade:quote:AAPL", []byte(`{"price":192.4}`), time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "quote:AAPL", map[string]float64{"price": 192.4}, time.Minute))

	mock.ExpectGet("wisetrade:quote:AAPL").SetVal(`{"price":192.4}`)
	var got map[string]float64
	require.NoError(t, rc.Get(ctx, "quote:AAPL", &got))
	assert.InDelta(t, 192.4, got["price"], 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "wisetrade")

	mock.ExpectGet("wisetrade:absent").RedisNil()

	var dest string
	err := rc.Get(context.Background(), "absent", &dest)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "wisetrade")

	mock.ExpectUnlink("wisetrade:a", "wisetrade:b").SetVal(2)
	require.NoError(t, rc.Delete(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheNoPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "")

	mock.ExpectGet("raw").SetVal("v")
	var dest string
	require.NoError(t, rc.Get(context.Background(), "raw", &dest))
	assert.Equal(t, "v", dest)
	assert.NoError(t, mock.ExpectationsWereMet())
}
