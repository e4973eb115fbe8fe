package domain

import (
	"time"
)

// Feature is one georeferenced survey response.
type Feature struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Location  GeoPoint           `json:"location"`
	PlaceName string             `json:"place_name"`
	Ratings   map[string]float64 `json:"ratings"`
	Comment   string             `json:"comment,omitempty"`
	AgeGroup  string             `json:"age_group,omitempty"`
	Gender    string             `json:"gender,omitempty"`
}

// Rating returns the raw value for an axis, NaN when the axis was never rated.
func (f Feature) Rating(axis string) float64 {
	if v, ok := f.Ratings[axis]; ok {
		return v
	}
	return nan
}

// Clone returns a deep copy so snapshots never share the ratings map.
func (f Feature) Clone() Feature {
	out := f
	if f.Ratings != nil {
		out.Ratings = make(map[string]float64, len(f.Ratings))
		for k, v := range f.Ratings {
			out.Ratings[k] = v
		}
	}
	return out
}

// Axis describes one Likert rating attribute.
type Axis struct {
	Key   string `json:"key" mapstructure:"key"`
	Label string `json:"label" mapstructure:"label"`
	Max   int    `json:"max" mapstructure:"max"`
}

// DefaultAxes is the two-axis variant: happiness and green-space quality.
func DefaultAxes() []Axis {
	return []Axis{
		{Key: "happy", Label: "Happiness", Max: 5},
		{Key: "green", Label: "Green-space quality", Max: 5},
	}
}

// SafetyAxes is the variant that also asks for perceived safety and stress.
func SafetyAxes() []Axis {
	return append(DefaultAxes(),
		Axis{Key: "safety", Label: "Perceived safety", Max: 5},
		Axis{Key: "stress", Label: "Stress", Max: 5},
	)
}

// Draft is the pending form input of the current session.
type Draft struct {
	Location  *GeoPoint          `json:"location,omitempty"`
	PlaceName string             `json:"place_name"`
	Ratings   map[string]float64 `json:"ratings"`
	Comment   string             `json:"comment"`
	AgeGroup  string             `json:"age_group"`
	Gender    string             `json:"gender"`
}

// PersistenceMode selects the persistence adapter variant.
type PersistenceMode string

const (
	PersistenceNone   PersistenceMode = "none"
	PersistenceLocal  PersistenceMode = "local"
	PersistenceRemote PersistenceMode = "remote"
)

// Valid reports whether m names a known variant.
func (m PersistenceMode) Valid() bool {
	switch m {
	case PersistenceNone, PersistenceLocal, PersistenceRemote:
		return true
	}
	return false
}

// SubmissionState is a state of the submission workflow.
type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateValidating SubmissionState = "validating"
	StateSubmitting SubmissionState = "submitting"
	StateSuccess    SubmissionState = "success"
	StateFailed     SubmissionState = "failed"
)

// ArchiveResult describes a completed archive run.
type ArchiveResult struct {
	ArchiveID string `json:"archive_id"`
	Key       string `json:"key"`
	Count     int    `json:"count"`
}
