package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/Domenick1991/skybooking/internal/clock"
)

// flightArena is the seat state of a single flight. Only occupied seats are
// stored; a missing label is free.
type flightArena struct {
	mu        sync.Mutex
	holds     map[string]Hold
	byBooking map[string][]string
}

type MemoryLedger struct {
	mu      sync.RWMutex
	flights map[int64]*flightArena
	clock   clock.Clock
}

func NewMemoryLedger(clk clock.Clock) *MemoryLedger {
	return &MemoryLedger{
		flights: make(map[int64]*flightArena),
		clock:   clk,
	}
}

// arena returns the flight's arena, creating it on first use. The ledger-wide
// lock only guards the map, never seat state.
func (l *MemoryLedger) arena(flightID int64) *flightArena {
	l.mu.RLock()
	a, ok := l.flights[flightID]
	l.mu.RUnlock()
	if ok {
		return a
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok = l.flights[flightID]; ok {
		return a
	}
	a = &flightArena{
		holds:     make(map[string]Hold),
		byBooking: make(map[string][]string),
	}
	l.flights[flightID] = a
	return a
}

func (l *MemoryLedger) Occupied(_ context.Context, flightID int64) ([]string, error) {
	a := l.arena(flightID)
	a.mu.Lock()
	labels := make([]string, 0, len(a.holds))
	for label := range a.holds {
		labels = append(labels, label)
	}
	a.mu.Unlock()

	sort.Strings(labels)
	return labels, nil
}

func (l *MemoryLedger) TryReserve(_ context.Context, flightID int64, labels []string, bookingID string) error {
	labels = dedupe(labels)
	now := l.clock.Now()

	a := l.arena(flightID)
	a.mu.Lock()
	defer a.mu.Unlock()

	var taken []string
	for _, label := range labels {
		if _, ok := a.holds[label]; ok {
			taken = append(taken, label)
		}
	}
	if len(taken) > 0 {
		return &ConflictError{FlightID: flightID, Seats: taken}
	}

	for _, label := range labels {
		a.holds[label] = Hold{FlightID: flightID, SeatLabel: label, BookingID: bookingID, HeldAt: now}
	}
	a.byBooking[bookingID] = append(a.byBooking[bookingID], labels...)
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, flightID int64, bookingID string) error {
	a := l.arena(flightID)
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, label := range a.byBooking[bookingID] {
		if h, ok := a.holds[label]; ok && h.BookingID == bookingID {
			delete(a.holds, label)
		}
	}
	delete(a.byBooking, bookingID)
	return nil
}

func (l *MemoryLedger) Holds(_ context.Context, flightID int64) ([]Hold, error) {
	a := l.arena(flightID)
	a.mu.Lock()
	holds := make([]Hold, 0, len(a.holds))
	for _, h := range a.holds {
		holds = append(holds, h)
	}
	a.mu.Unlock()

	sort.Slice(holds, func(i, j int) bool { return holds[i].SeatLabel < holds[j].SeatLabel })
	return holds, nil
}

func (l *MemoryLedger) Flights(_ context.Context) ([]int64, error) {
	l.mu.RLock()
	arenas := make(map[int64]*flightArena, len(l.flights))
	for id, a := range l.flights {
		arenas[id] = a
	}
	l.mu.RUnlock()

	ids := make([]int64, 0, len(arenas))
	for id, a := range arenas {
		a.mu.Lock()
		n := len(a.holds)
		a.mu.Unlock()
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var _ Ledger = (*MemoryLedger)(nil)
