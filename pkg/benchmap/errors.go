package benchmap

import (
	"errors"
	"fmt"
)

// ErrLoopStopped is returned when work is posted to a loop that has exited.
var ErrLoopStopped = errors.New("loop stopped")

// ErrInvalidCoordinate indicates a coordinate outside the WGS-84 range.
type ErrInvalidCoordinate struct {
	ID       string
	Lat, Lon float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate for %s: lat=%f lon=%f (lat must be ±90, lon must be ±180)",
		e.ID, e.Lat, e.Lon)
}
