package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// View is a map viewport in a simulation script.
type View struct {
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
	LatSpan float64 `yaml:"lat_span"`
	LonSpan float64 `yaml:"lon_span,omitempty"` // Defaults to LatSpan
}

// Region converts the view to an engine region.
func (v View) Region() benchmap.Region {
	lonSpan := v.LonSpan
	if lonSpan == 0 {
		lonSpan = v.LatSpan
	}
	return benchmap.Region{
		CenterLat: v.Lat,
		CenterLon: v.Lon,
		Span:      benchmap.Span{LatitudeDelta: v.LatSpan, LongitudeDelta: lonSpan},
	}
}

// Offset moves the viewport center by degrees.
type Offset struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Step is one user action. Exactly one of Goto, Pan, Zoom, Priority, Tap or
// Settle is expected; Wait may accompany any of them and is slept after the
// action.
type Step struct {
	Name     string        `yaml:"name,omitempty"`
	Goto     *View         `yaml:"goto,omitempty"`
	Pan      *Offset       `yaml:"pan,omitempty"`
	Zoom     float64       `yaml:"zoom,omitempty"` // Span multiplier, <1 zooms in
	Priority []string      `yaml:"priority,omitempty"`
	Tap      []string      `yaml:"tap,omitempty"`
	Settle   bool          `yaml:"settle,omitempty"`
	Wait     time.Duration `yaml:"wait,omitempty"`
	Repeat   int           `yaml:"repeat,omitempty"`
}

// Script is a recorded sequence of viewport changes replayed by simulate.
type Script struct {
	States   []string `yaml:"states,omitempty"`
	Priority []string `yaml:"priority,omitempty"`
	Start    View     `yaml:"start"`
	Steps    []Step   `yaml:"steps"`
}

// LoadScript reads and validates a YAML script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the start view and every step.
func (s *Script) Validate() error {
	var errs []error
	if s.Start.LatSpan <= 0 {
		errs = append(errs, errors.New("start.lat_span must be positive"))
	}
	for i, st := range s.Steps {
		actions := 0
		for _, set := range []bool{st.Goto != nil, st.Pan != nil, st.Zoom != 0, st.Priority != nil, st.Tap != nil, st.Settle} {
			if set {
				actions++
			}
		}
		switch {
		case actions > 1:
			errs = append(errs, fmt.Errorf("step %d: more than one action", i+1))
		case actions == 0 && st.Wait <= 0:
			errs = append(errs, fmt.Errorf("step %d: no action", i+1))
		}
		if st.Zoom < 0 {
			errs = append(errs, fmt.Errorf("step %d: zoom must be positive", i+1))
		}
		if st.Goto != nil && st.Goto.LatSpan <= 0 {
			errs = append(errs, fmt.Errorf("step %d: goto.lat_span must be positive", i+1))
		}
		if st.Repeat < 0 {
			errs = append(errs, fmt.Errorf("step %d: repeat must not be negative", i+1))
		}
	}
	return errors.Join(errs...)
}

// Times returns how often the step runs.
func (st Step) Times() int {
	if st.Repeat <= 0 {
		return 1
	}
	return st.Repeat
}

// moves reports whether the step changes the viewport.
func (st Step) moves() bool {
	return st.Goto != nil || st.Pan != nil || st.Zoom != 0
}

// Apply returns r after the step's viewport change.
func (st Step) Apply(r benchmap.Region) benchmap.Region {
	switch {
	case st.Goto != nil:
		return st.Goto.Region()
	case st.Pan != nil:
		r.CenterLat += st.Pan.Lat
		r.CenterLon += st.Pan.Lon
	case st.Zoom > 0:
		r.Span.LatitudeDelta *= st.Zoom
		r.Span.LongitudeDelta *= st.Zoom
	}
	return r
}
