package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) AdjustCapacity(ctx context.Context, id int64, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlight(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func sampleFlights() []domain.Flight {
	departure := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	return []domain.Flight{
		{
			ID:             4,
			FlightNumber:   "EK004",
			Airline:        "Emirates",
			DepartureCity:  "Dubai",
			ArrivalCity:    "Paris",
			DepartureTime:  departure,
			ArrivalTime:    departure.Add(7 * time.Hour),
			Class:          domain.CabinClassBusiness,
			TotalSeats:     20,
			AvailableSeats: 19,
			PriceCents:     250000,
			Status:         domain.FlightStatusScheduled,
		},
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.List(ctx, domain.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx, domain.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything)
}

func TestFlightService_List_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	log, hook := test.NewNullLogger()
	service := NewFlightService(mockRepo, mockCache, log)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, errors.New("cache error")).Once()
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.List(ctx, domain.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	assert.Len(t, hook.AllEntries(), 1)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	expectedErr := errors.New("database error")

	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(nil, expectedErr).Once()

	result, err := service.List(ctx, domain.FlightFilter{})

	assert.ErrorIs(t, err, expectedErr)
	assert.Nil(t, result)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything)
}

func TestFlightService_GetByID_ReadThrough(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flight := &sampleFlights()[0]

	mockCache.On("GetFlight", ctx, int64(4)).Return(nil, nil).Once()
	mockRepo.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()
	mockCache.On("SetFlight", ctx, flight).Return(nil).Once()

	result, err := service.GetByID(ctx, 4)

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_GetByID_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flight := &sampleFlights()[0]

	mockCache.On("GetFlight", ctx, int64(4)).Return(flight, nil).Once()

	result, err := service.GetByID(ctx, 4)

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestFlightService_GetByID_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, int64(999)).Return(nil, domain.ErrFlightNotFound).Once()

	result, err := service.GetByID(ctx, 999)

	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
	assert.Nil(t, result)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(flights, nil).Once()

	result, err := service.List(ctx, domain.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_FilteredBypassesCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()
	filter := domain.FlightFilter{Origin: "Dubai", Class: domain.CabinClassBusiness, Seats: 2}

	mockRepo.On("List", ctx, filter).Return(flights, nil).Once()

	result, err := service.List(ctx, filter)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
	mockCache.AssertNotCalled(t, "GetFlights", mock.Anything)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything)
}

func TestFlightService_List_InvalidFilter(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)
	ctx := context.Background()

	_, err := service.List(ctx, domain.FlightFilter{Class: "premium"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = service.List(ctx, domain.FlightFilter{Seats: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
