package bootstrap

import (
	"fmt"

	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/clock"
	"github.com/Domenick1991/skybooking/internal/ledger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// NewLedger builds the seat ledger selected by cfg.Backend. The memory
// backend only serialises callers inside one process.
func NewLedger(cfg config.LedgerConfig, pool *pgxpool.Pool, rdb *redis.Client, clk clock.Clock) (ledger.Ledger, error) {
	switch cfg.Backend {
	case config.LedgerBackendMemory:
		return ledger.NewMemoryLedger(clk), nil
	case config.LedgerBackendPostgres, "":
		if pool == nil {
			return nil, fmt.Errorf("ledger backend %q needs a postgres pool", cfg.Backend)
		}
		return ledger.NewPGLedger(pool, clk), nil
	case config.LedgerBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("ledger backend %q needs a redis client", cfg.Backend)
		}
		return ledger.NewRedisLedger(rdb, clk), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
