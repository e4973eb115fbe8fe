package natsadapter

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// Event types carried in Event.Type.
const (
	EventFeatureAdded   = "feature.added"
	EventFeatureRemoved = "feature.removed"
	EventCleared        = "features.cleared"
	EventStatus         = "status"
	EventArchived       = "archive.completed"
)

// Event is the JSON envelope of every message on survey.>.
type Event struct {
	Type      string             `json:"type"`
	ID        string             `json:"id,omitempty"`
	Feature   *geojson.Feature   `json:"feature,omitempty"`
	Status    *domain.StatusView `json:"status,omitempty"`
	ArchiveID string             `json:"archive_id,omitempty"`
	Count     int                `json:"count,omitempty"`
	At        time.Time          `json:"at"`
}
