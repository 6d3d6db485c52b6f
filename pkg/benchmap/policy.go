package benchmap

// DefaultZoomThreshold is the latitude span, in degrees, at or above which
// the map counts as zoomed out.
const DefaultZoomThreshold = 0.25

// Predicate decides whether a point may be shown.
type Predicate func(PointRecord) bool

// ViewportPolicy maps the current zoom level and priority set to an
// eligibility predicate.
//
// Rules:
//  1. Zoomed in (LatitudeDelta < Threshold): every point is eligible.
//  2. Zoomed out with a non-empty priority set: only priority points.
//  3. Zoomed out with an empty priority set: nothing is eligible, so the
//     full dataset is never drawn at low zoom.
//
// The predicate is applied on top of the viewport rectangle filter; a point
// must pass both.
type ViewportPolicy struct {
	// Threshold is the latitude span in degrees separating zoomed in from
	// zoomed out. Zero or negative uses DefaultZoomThreshold.
	Threshold float64
}

// Mode describes which rule of the policy applies.
type Mode int

const (
	// ModeAll admits every point.
	ModeAll Mode = iota

	// ModePriorityOnly admits only priority points.
	ModePriorityOnly

	// ModeNone admits nothing.
	ModeNone
)

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModePriorityOnly:
		return "priority-only"
	case ModeNone:
		return "none"
	default:
		return "unknown"
	}
}

func (p ViewportPolicy) threshold() float64 {
	if p.Threshold <= 0 {
		return DefaultZoomThreshold
	}
	return p.Threshold
}

// ZoomedOut reports whether span is at or past the threshold.
func (p ViewportPolicy) ZoomedOut(span Span) bool {
	return span.LatitudeDelta >= p.threshold()
}

// Mode returns the rule that applies for span and a priority set that is
// (or is not) empty.
func (p ViewportPolicy) Mode(span Span, hasPriority bool) Mode {
	if !p.ZoomedOut(span) {
		return ModeAll
	}
	if hasPriority {
		return ModePriorityOnly
	}
	return ModeNone
}

// Predicate returns the eligibility test for span and priority.
func (p ViewportPolicy) Predicate(span Span, priority PrioritySet) Predicate {
	switch p.Mode(span, priority.Len() > 0) {
	case ModePriorityOnly:
		return func(pt PointRecord) bool {
			_, ok := priority[pt.Key()]
			return ok
		}
	case ModeNone:
		return func(PointRecord) bool { return false }
	default:
		return func(PointRecord) bool { return true }
	}
}
