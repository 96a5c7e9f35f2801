package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestPGBookingRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	repo := NewBookingRepository(pool)

	flightID := testutil.InsertFlight(t, ctx, pool, domain.Flight{
		FlightNumber: "EK001", Airline: "Emirates", DepartureCity: "Dubai", ArrivalCity: "London", PriceCents: 45000,
	})

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	booking := &domain.Booking{
		ID:       uuid.NewString(),
		UserID:   "user-1",
		FlightID: flightID,
		Passengers: []domain.Passenger{
			{FirstName: "Ada", LastName: "Lovelace", PassportNumber: "P100", SeatLabel: "E-2"},
			{FirstName: "Alan", LastName: "Turing", PassportNumber: "P200", SeatLabel: "E-1"},
		},
		TotalPriceCents: 90000,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(ctx, booking))

	got, err := repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.Passengers, got.Passengers)
	assert.Equal(t, domain.BookingStatusPending, got.Status)
	assert.Equal(t, int64(90000), got.TotalPriceCents)

	updated, err := repo.Transition(ctx, booking.ID, func(cur *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
		assert.Len(t, cur.Passengers, 2)
		return domain.BookingStatusConfirmed, domain.PaymentStatusPaid, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)
	assert.Len(t, updated.Passengers, 2)

	list, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, booking.ID, list[0].ID)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestPGBookingRepository_Transition(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	repo := NewBookingRepository(pool)

	flightID := testutil.InsertFlight(t, ctx, pool, domain.Flight{
		FlightNumber: "EK003", Airline: "Emirates", DepartureCity: "Dubai", ArrivalCity: "Paris", PriceCents: 30000,
	})
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	booking := &domain.Booking{
		ID:              uuid.NewString(),
		UserID:          "user-1",
		FlightID:        flightID,
		Passengers:      []domain.Passenger{{FirstName: "Grace", LastName: "Hopper", PassportNumber: "P300", SeatLabel: "E-9"}},
		TotalPriceCents: 30000,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(ctx, booking))

	t.Run("apply error rolls back", func(t *testing.T) {
		_, err := repo.Transition(ctx, booking.ID, func(*domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
			return "", "", domain.ErrInvalidTransition
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		got, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, got.Status)
	})

	t.Run("unchanged status is not written", func(t *testing.T) {
		got, err := repo.Transition(ctx, booking.ID, func(cur *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
			return cur.Status, cur.PaymentStatus, nil
		})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, got.Status)
		assert.True(t, got.UpdatedAt.Equal(now))
	})

	t.Run("missing booking", func(t *testing.T) {
		called := false
		_, err := repo.Transition(ctx, uuid.NewString(), func(cur *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
			called = true
			return cur.Status, cur.PaymentStatus, nil
		})
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
		assert.False(t, called)
	})

	t.Run("waits for a locked row", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		_, err = tx.Exec(ctx, `SELECT id FROM bookings WHERE id=$1 FOR UPDATE`, booking.ID)
		require.NoError(t, err)

		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		_, err = repo.Transition(short, booking.ID, func(cur *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
			return cur.Status, cur.PaymentStatus, nil
		})
		cancel()
		assert.Error(t, err)

		done := make(chan error, 1)
		go func() {
			_, err := repo.Transition(ctx, booking.ID, func(cur *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
				return cur.Status, cur.PaymentStatus, nil
			})
			done <- err
		}()
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, tx.Commit(ctx))

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("transition did not proceed after the lock was released")
		}
	})

	t.Run("concurrent cancels are serialized", func(t *testing.T) {
		errAlreadyCanceled := errors.New("already canceled")
		const racers = 6
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make(chan error, racers)
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := repo.Transition(ctx, booking.ID, func(cur *domain.Booking) (domain.BookingStatus, domain.PaymentStatus, error) {
					if cur.Status == domain.BookingStatusCanceled {
						return "", "", errAlreadyCanceled
					}
					return domain.BookingStatusCanceled, cur.PaymentStatus, nil
				})
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		won := 0
		for err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, errAlreadyCanceled)
		}
		assert.Equal(t, 1, won)

		got, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCanceled, got.Status)
	})
}
