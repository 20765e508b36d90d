package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

var ErrWaypointNotFound = errors.New("waypoint not found")

// Track is the traversable distance shared by both trains of a race.
type Track struct {
	Length float64 `json:"length"`
}

func NewTrack(length float64) Track {
	return Track{Length: max(0, length)}
}

type WaypointKind int

const (
	// KindStop forces a full halt and a dwell before continuing.
	KindStop WaypointKind = iota
	// KindSpeedZone imposes a reduced speed ceiling while approaching it.
	KindSpeedZone
)

func (k WaypointKind) String() string {
	switch k {
	case KindStop:
		return "station"
	case KindSpeedZone:
		return "crossing"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WaypointID is unique per (track, kind).
type WaypointID int

type Waypoint struct {
	ID       WaypointID   `json:"id"`
	Kind     WaypointKind `json:"kind"`
	Position float64      `json:"position"`
	Name     string       `json:"name"`
}

// WaypointSet is the unordered collection of waypoints of one track.
// Items are kept in insertion order; consumers needing position order use
// Sorted or SortWaypoints.
type WaypointSet struct {
	items  []Waypoint
	nextID map[WaypointKind]WaypointID
	bounds *[2]float64
}

type WaypointSetOption func(s *WaypointSet)

// WithBounds clamps positions of added or moved waypoints into [lo, hi].
func WithBounds(lower, upper float64) WaypointSetOption {
	return func(s *WaypointSet) {
		if upper < lower {
			upper = lower
		}
		s.bounds = &[2]float64{lower, upper}
	}
}

func NewWaypointSet(opts ...WaypointSetOption) *WaypointSet {
	ret := &WaypointSet{
		items:  make([]Waypoint, 0),
		nextID: map[WaypointKind]WaypointID{KindStop: 1, KindSpeedZone: 1},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Add appends a waypoint and returns it with its freshly allocated id.
// An empty name is replaced by "<Kind> <id>".
func (s *WaypointSet) Add(kind WaypointKind, position float64, name string) Waypoint {
	id := s.nextID[kind]
	if id == 0 {
		id = 1
	}
	s.nextID[kind] = id + 1
	if name == "" {
		name = fmt.Sprintf("%s %d", displayKind(kind), id)
	}
	wp := Waypoint{ID: id, Kind: kind, Position: s.clamp(position), Name: name}
	s.items = append(s.items, wp)
	return wp
}

func (s *WaypointSet) Remove(kind WaypointKind, id WaypointID) error {
	idx := s.indexOf(kind, id)
	if idx == -1 {
		return fmt.Errorf("remove %s %d: %w", kind, id, ErrWaypointNotFound)
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	return nil
}

func (s *WaypointSet) Move(kind WaypointKind, id WaypointID, position float64) error {
	idx := s.indexOf(kind, id)
	if idx == -1 {
		return fmt.Errorf("move %s %d: %w", kind, id, ErrWaypointNotFound)
	}
	s.items[idx].Position = s.clamp(position)
	return nil
}

func (s *WaypointSet) Rename(kind WaypointKind, id WaypointID, name string) error {
	idx := s.indexOf(kind, id)
	if idx == -1 {
		return fmt.Errorf("rename %s %d: %w", kind, id, ErrWaypointNotFound)
	}
	s.items[idx].Name = name
	return nil
}

// Clear removes all waypoints. Ids are not reset.
func (s *WaypointSet) Clear() {
	s.items = s.items[:0]
}

func (s *WaypointSet) Len() int {
	return len(s.items)
}

// All returns a copy of the waypoints in insertion order.
func (s *WaypointSet) All() []Waypoint {
	return slices.Clone(s.items)
}

// Sorted returns the waypoints of the given kind ordered by position.
func (s *WaypointSet) Sorted(kind WaypointKind) []Waypoint {
	return SortWaypoints(OfKind(s.items, kind))
}

func (s *WaypointSet) Stations() []Waypoint {
	return s.Sorted(KindStop)
}

func (s *WaypointSet) Crossings() []Waypoint {
	return s.Sorted(KindSpeedZone)
}

func (s *WaypointSet) Counts() (stations, crossings int) {
	return lo.CountBy(s.items, func(w Waypoint) bool { return w.Kind == KindStop }),
		lo.CountBy(s.items, func(w Waypoint) bool { return w.Kind == KindSpeedZone })
}

func (s *WaypointSet) indexOf(kind WaypointKind, id WaypointID) int {
	return slices.IndexFunc(s.items, func(w Waypoint) bool {
		return w.Kind == kind && w.ID == id
	})
}

func (s *WaypointSet) clamp(pos float64) float64 {
	if s.bounds == nil {
		return pos
	}
	return min(max(pos, s.bounds[0]), s.bounds[1])
}

// OfKind filters waypoints by kind keeping their order.
func OfKind(items []Waypoint, kind WaypointKind) []Waypoint {
	return lo.Filter(items, func(w Waypoint, _ int) bool { return w.Kind == kind })
}

// SortWaypoints returns a copy ordered by position. Waypoints sharing a
// position keep their insertion order.
func SortWaypoints(items []Waypoint) []Waypoint {
	ret := slices.Clone(items)
	slices.SortStableFunc(ret, func(a, b Waypoint) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		default:
			return 0
		}
	})
	return ret
}

func displayKind(kind WaypointKind) string {
	switch kind {
	case KindStop:
		return "Station"
	case KindSpeedZone:
		return "Crossing"
	default:
		return "Waypoint"
	}
}
