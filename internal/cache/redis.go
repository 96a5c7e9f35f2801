package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache caches the flight directory. Seat occupancy is never cached; it
// is always read from the ledger.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

// InvalidateFlight drops cached entries that include the flight's seat counter.
func (c *RedisCache) InvalidateFlight(ctx context.Context, flightID int64) error {
	return c.client.Del(ctx, flightsKey(), flightKey(flightID)).Err()
}

func (c *RedisCache) GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	data, err := c.client.Get(ctx, flightKey(flightID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flight domain.Flight
	if err := json.Unmarshal(data, &flight); err != nil {
		return nil, err
	}
	return &flight, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, flight *domain.Flight) error {
	payload, err := json.Marshal(flight)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightKey(flight.ID), payload, c.flightsTTL).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func flightKey(flightID int64) string {
	return fmt.Sprintf("cache:flight:%d", flightID)
}
