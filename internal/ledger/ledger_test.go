package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// Booking ids are UUIDs so the Postgres backend accepts them.
const (
	bookingA    = "6f1c1a52-2d1e-4b9e-9a57-0c4f6c3b0a01"
	bookingB    = "6f1c1a52-2d1e-4b9e-9a57-0c4f6c3b0a02"
	bookingC    = "6f1c1a52-2d1e-4b9e-9a57-0c4f6c3b0a03"
	bookingNone = "6f1c1a52-2d1e-4b9e-9a57-0c4f6c3b0aff"
)

// runLedgerContract checks the behaviour every backend must share. newLedger
// returns a fresh ledger on which flights 1 and 2 exist and have no holds.
func runLedgerContract(t *testing.T, newLedger func(t *testing.T) Ledger) {
	ctx := context.Background()

	t.Run("reserve then list", func(t *testing.T) {
		l := newLedger(t)

		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-3", "E-1", "E-2"}, bookingA))

		occupied, err := l.Occupied(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"E-1", "E-2", "E-3"}, occupied)

		other, err := l.Occupied(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("conflict names contested seats and reserves nothing", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-1", "E-2", "E-3"}, bookingA))

		err := l.TryReserve(ctx, 1, []string{"E-4", "E-2"}, bookingB)

		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, []string{"E-2"}, conflict.Seats)
		assert.Equal(t, int64(1), conflict.FlightID)

		occupied, err := l.Occupied(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"E-1", "E-2", "E-3"}, occupied)

		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-4", "E-5"}, bookingB))
	})

	t.Run("same seat on different flights", func(t *testing.T) {
		l := newLedger(t)

		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-1"}, bookingA))
		require.NoError(t, l.TryReserve(ctx, 2, []string{"E-1"}, bookingB))
	})

	t.Run("release frees only the booking's seats", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-1", "E-2"}, bookingA))
		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-7"}, bookingB))

		require.NoError(t, l.Release(ctx, 1, bookingA))

		occupied, err := l.Occupied(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"E-7"}, occupied)

		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-1", "E-2"}, bookingC))
	})

	t.Run("release is idempotent", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-1", "E-2"}, bookingA))
		require.NoError(t, l.TryReserve(ctx, 1, []string{"E-9"}, bookingB))

		require.NoError(t, l.Release(ctx, 1, bookingA))
		once, err := l.Occupied(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, l.Release(ctx, 1, bookingA))
		twice, err := l.Occupied(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, once, twice)
		require.NoError(t, l.Release(ctx, 1, bookingNone))
	})

	t.Run("holds and flights", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.TryReserve(ctx, 2, []string{"E-8", "E-4"}, bookingA))

		holds, err := l.Holds(ctx, 2)
		require.NoError(t, err)
		require.Len(t, holds, 2)
		assert.Equal(t, "E-4", holds[0].SeatLabel)
		assert.Equal(t, bookingA, holds[0].BookingID)
		assert.Equal(t, int64(2), holds[0].FlightID)
		assert.True(t, holds[0].HeldAt.Equal(testNow))

		flights, err := l.Flights(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, flights)
	})

	t.Run("concurrent overlapping reservations", func(t *testing.T) {
		l := newLedger(t)

		const attempts = 20
		for i := 0; i < attempts; i++ {
			a := fmt.Sprintf("00000000-0000-4000-a000-%012d", i)
			b := fmt.Sprintf("00000000-0000-4000-b000-%012d", i)
			s1 := []string{"E-10", "E-11", "E-12"}
			s2 := []string{"E-12", "E-13"}

			var wg sync.WaitGroup
			errs := make([]error, 2)
			wg.Add(2)
			go func() { defer wg.Done(); errs[0] = l.TryReserve(ctx, 1, s1, a) }()
			go func() { defer wg.Done(); errs[1] = l.TryReserve(ctx, 1, s2, b) }()
			wg.Wait()

			var conflicts int
			for _, err := range errs {
				if err == nil {
					continue
				}
				var conflict *ConflictError
				require.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
				assert.Equal(t, []string{"E-12"}, conflict.Seats)
				conflicts++
			}
			require.Equal(t, 1, conflicts, "exactly one reservation must win")

			holds, err := l.Holds(ctx, 1)
			require.NoError(t, err)
			owners := map[string]string{}
			for _, h := range holds {
				_, dup := owners[h.SeatLabel]
				require.False(t, dup, "seat %s held twice", h.SeatLabel)
				owners[h.SeatLabel] = h.BookingID
			}
			if errs[0] == nil {
				assert.Len(t, holds, 3)
			} else {
				assert.Len(t, holds, 2)
			}

			require.NoError(t, l.Release(ctx, 1, a))
			require.NoError(t, l.Release(ctx, 1, b))
		}
	})

	t.Run("many bookings race for one seat", func(t *testing.T) {
		l := newLedger(t)

		const racers = 16
		var wg sync.WaitGroup
		results := make(chan error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results <- l.TryReserve(ctx, 2, []string{"E-1"}, fmt.Sprintf("00000000-0000-4000-c000-%012d", i))
			}(i)
		}
		wg.Wait()
		close(results)

		var winners int
		for err := range results {
			if err == nil {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}
