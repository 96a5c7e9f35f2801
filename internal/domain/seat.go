package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type seatRange struct {
	prefix string
	count  int
}

var seatRanges = map[CabinClass]seatRange{
	CabinClassFirst:    {prefix: "F", count: 10},
	CabinClassBusiness: {prefix: "B", count: 20},
	CabinClassEconomy:  {prefix: "E", count: 50},
}

// Unknown classes are seated as economy.
func rangeFor(class CabinClass) seatRange {
	if r, ok := seatRanges[class]; ok {
		return r
	}
	return seatRanges[CabinClassEconomy]
}

// SeatCount returns the number of seats a cabin of the given class has.
func SeatCount(class CabinClass) int {
	return rangeFor(class).count
}

// SeatLabels returns the full, ordered label sequence for a class: F-1..F-10,
// B-1..B-20 or E-1..E-50.
func SeatLabels(class CabinClass) []string {
	r := rangeFor(class)
	labels := make([]string, 0, r.count)
	for i := 1; i <= r.count; i++ {
		labels = append(labels, SeatLabel(class, i))
	}
	return labels
}

func SeatLabel(class CabinClass, index int) string {
	return fmt.Sprintf("%s-%d", rangeFor(class).prefix, index)
}

// ValidSeat reports whether label names a seat that exists in the class.
func ValidSeat(class CabinClass, label string) bool {
	r := rangeFor(class)
	prefix, num, ok := strings.Cut(label, "-")
	if !ok || prefix != r.prefix {
		return false
	}
	// reject "E-01" and "E-+1", labels are canonical
	if num == "" || num[0] < '1' || num[0] > '9' {
		return false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return false
	}
	return n >= 1 && n <= r.count
}

// AvailableSeats returns the class label sequence minus occupied labels,
// preserving sequence order.
func AvailableSeats(class CabinClass, occupied []string) []string {
	taken := make(map[string]struct{}, len(occupied))
	for _, l := range occupied {
		taken[l] = struct{}{}
	}
	all := SeatLabels(class)
	free := make([]string, 0, len(all))
	for _, l := range all {
		if _, ok := taken[l]; !ok {
			free = append(free, l)
		}
	}
	return free
}
