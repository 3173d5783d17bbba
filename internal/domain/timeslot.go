package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadTimeslot = errors.New("timeslot must be HH:MM")

// Timeslot is a pickup bucket expressed in minutes after midnight.
type Timeslot int

func ParseTimeslot(s string) (Timeslot, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, ErrBadTimeslot
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrBadTimeslot
	}

	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrBadTimeslot
	}

	return Timeslot(h*60 + m), nil
}

func (t Timeslot) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Slots enumerates every slot in [from, to] stepping by step minutes.
func Slots(from, to Timeslot, step int) []Timeslot {
	if step <= 0 || to < from {
		return nil
	}

	var out []Timeslot
	for t := from; t <= to; t += Timeslot(step) {
		out = append(out, t)
	}
	return out
}
