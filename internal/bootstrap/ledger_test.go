package bootstrap

import (
	"testing"

	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/clock"
	"github.com/Domenick1991/skybooking/internal/ledger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedger(t *testing.T) {
	clk := clock.NewSystem()

	l, err := NewLedger(config.LedgerConfig{Backend: config.LedgerBackendMemory}, nil, nil, clk)
	require.NoError(t, err)
	assert.IsType(t, &ledger.MemoryLedger{}, l)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l, err = NewLedger(config.LedgerConfig{Backend: config.LedgerBackendRedis}, nil, rdb, clk)
	require.NoError(t, err)
	assert.IsType(t, &ledger.RedisLedger{}, l)

	_, err = NewLedger(config.LedgerConfig{Backend: config.LedgerBackendPostgres}, nil, nil, clk)
	assert.Error(t, err)

	_, err = NewLedger(config.LedgerConfig{Backend: config.LedgerBackendRedis}, nil, nil, clk)
	assert.Error(t, err)

	_, err = NewLedger(config.LedgerConfig{Backend: "etcd"}, nil, nil, clk)
	assert.Error(t, err)
}
