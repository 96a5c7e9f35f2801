package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/skybooking/internal/clock"
	"github.com/redis/go-redis/v9"
)

// Holds of one flight live in a single hash, field = seat label,
// value = "<bookingID>|<held at, unix ms>". Scripts run atomically on that key.
var reserveScript = redis.NewScript(`
local taken = {}
for i = 3, #ARGV do
	if redis.call('HEXISTS', KEYS[1], ARGV[i]) == 1 then
		table.insert(taken, ARGV[i])
	end
end
if #taken > 0 then
	return taken
end
local value = ARGV[1] .. '|' .. ARGV[2]
for i = 3, #ARGV do
	redis.call('HSET', KEYS[1], ARGV[i], value)
end
return {}
`)

var releaseScript = redis.NewScript(`
local entries = redis.call('HGETALL', KEYS[1])
local prefix = ARGV[1] .. '|'
local removed = 0
for i = 1, #entries, 2 do
	if string.sub(entries[i + 1], 1, #prefix) == prefix then
		redis.call('HDEL', KEYS[1], entries[i])
		removed = removed + 1
	end
end
return removed
`)

const flightKeyPrefix = "ledger:{flight:"

type RedisLedger struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisLedger(client *redis.Client, clk clock.Clock) *RedisLedger {
	return &RedisLedger{client: client, clock: clk}
}

func (l *RedisLedger) Occupied(ctx context.Context, flightID int64) ([]string, error) {
	labels, err := l.client.HKeys(ctx, flightKey(flightID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read occupied seats: %w", err)
	}
	sort.Strings(labels)
	return labels, nil
}

func (l *RedisLedger) TryReserve(ctx context.Context, flightID int64, labels []string, bookingID string) error {
	labels = dedupe(labels)
	args := make([]interface{}, 0, len(labels)+2)
	args = append(args, bookingID, l.clock.Now().UnixMilli())
	for _, label := range labels {
		args = append(args, label)
	}

	taken, err := reserveScript.Run(ctx, l.client, []string{flightKey(flightID)}, args...).StringSlice()
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return &ConflictError{FlightID: flightID, Seats: taken}
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, flightID int64, bookingID string) error {
	if err := releaseScript.Run(ctx, l.client, []string{flightKey(flightID)}, bookingID).Err(); err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

func (l *RedisLedger) Holds(ctx context.Context, flightID int64) ([]Hold, error) {
	entries, err := l.client.HGetAll(ctx, flightKey(flightID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read holds: %w", err)
	}

	holds := make([]Hold, 0, len(entries))
	for label, value := range entries {
		bookingID, heldAt, err := parseHoldValue(value)
		if err != nil {
			return nil, fmt.Errorf("flight %d seat %s: %w", flightID, label, err)
		}
		holds = append(holds, Hold{FlightID: flightID, SeatLabel: label, BookingID: bookingID, HeldAt: heldAt})
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].SeatLabel < holds[j].SeatLabel })
	return holds, nil
}

func (l *RedisLedger) Flights(ctx context.Context) ([]int64, error) {
	var ids []int64
	iter := l.client.Scan(ctx, 0, flightKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw := strings.TrimSuffix(strings.TrimPrefix(iter.Val(), flightKeyPrefix), "}")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan flights: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// The hash tag keeps every key of a flight on one cluster slot.
func flightKey(flightID int64) string {
	return fmt.Sprintf("%s%d}", flightKeyPrefix, flightID)
}

func parseHoldValue(value string) (string, time.Time, error) {
	bookingID, ms, ok := strings.Cut(value, "|")
	if !ok {
		return "", time.Time{}, fmt.Errorf("malformed hold %q", value)
	}
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed hold time %q: %w", value, err)
	}
	return bookingID, time.UnixMilli(millis).UTC(), nil
}

var _ Ledger = (*RedisLedger)(nil)
