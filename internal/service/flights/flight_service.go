package flights

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

// FlightCache is a read-through cache in front of the flight directory. A nil
// result with a nil error is a miss.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
	SetFlight(ctx context.Context, flight *domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   logrus.FieldLogger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, log logrus.FieldLogger) *FlightService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FlightService{repo: repo, cache: cache, log: log}
}

// List returns the flights matching filter. Only the unfiltered listing goes
// through the cache.
func (s *FlightService) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	if filter.Class != "" && !filter.Class.Valid() {
		return nil, domain.InvalidRequest(fmt.Sprintf("unknown class %q", filter.Class))
	}
	if filter.Seats < 0 {
		return nil, domain.InvalidRequest("seats must not be negative")
	}
	if !filter.Empty() {
		return s.repo.List(ctx, filter)
	}

	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.log.WithError(err).Warn("flight cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.WithError(err).Warn("flight cache write failed")
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlight(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("flight_id", id).Warn("flight cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, flight); err != nil {
			s.log.WithError(err).WithField("flight_id", id).Warn("flight cache write failed")
		}
	}
	return flight, nil
}

var _ FlightUseCase = (*FlightService)(nil)
