package http

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/projector"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
	"github.com/samirrijal/mapsurvey/internal/pkg/export"
	"github.com/samirrijal/mapsurvey/internal/pkg/metrics"
)

// FeatureDTO is a feature as served over the API. A non-finite location is
// reported as null and non-finite ratings are left out, since JSON has no
// representation for either.
type FeatureDTO struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Location  *domain.GeoPoint   `json:"location"`
	PlaceName string             `json:"place_name"`
	Ratings   map[string]float64 `json:"ratings"`
	Comment   string             `json:"comment,omitempty"`
	AgeGroup  string             `json:"age_group,omitempty"`
	Gender    string             `json:"gender,omitempty"`
}

func toDTO(f domain.Feature) FeatureDTO {
	dto := FeatureDTO{
		ID:        f.ID,
		Timestamp: f.Timestamp,
		PlaceName: f.PlaceName,
		Ratings:   make(map[string]float64, len(f.Ratings)),
		Comment:   f.Comment,
		AgeGroup:  f.AgeGroup,
		Gender:    f.Gender,
	}
	if f.Location.Finite() {
		loc := f.Location
		dto.Location = &loc
	}
	for k, v := range f.Ratings {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			dto.Ratings[k] = v
		}
	}
	return dto
}

// SurveyInfo is what a client needs to build the form and the map.
type SurveyInfo struct {
	Axes                []domain.Axis          `json:"axes"`
	RequireDemographics bool                   `json:"require_demographics"`
	Persistence         domain.PersistenceMode `json:"persistence"`
	SubmissionsEnabled  bool                   `json:"submissions_enabled"`
	InitialCenter       domain.GeoPoint        `json:"initial_center"`
	InitialZoom         int                    `json:"initial_zoom"`
	NoticeMillis        int64                  `json:"notice_ms"`
}

// MarkerView is the marker layer plus the extent to fit.
type MarkerView struct {
	Markers []domain.Marker `json:"markers"`
	Bounds  *domain.Bounds  `json:"bounds,omitempty"`
	Padding int             `json:"padding"`
}

// GeolocationReport is the outcome of a browser geolocation query.
type GeolocationReport struct {
	OK    bool     `json:"ok"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

// ConfigHandler returns the survey configuration.
func ConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(SurveyInfo{
			Axes:                deps.Session.Axes(),
			RequireDemographics: deps.Survey.RequireDemographics,
			Persistence:         deps.Session.Mode(),
			SubmissionsEnabled:  deps.Session.Available() == nil,
			InitialCenter:       deps.Survey.InitialCenter,
			InitialZoom:         deps.Survey.InitialZoom,
			NoticeMillis:        deps.Survey.NoticeDuration.Milliseconds(),
		})
	}
}

// ListFeaturesHandler returns the list view, newest first.
func ListFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cards := projector.Cards(deps.Session.Snapshot(), deps.Session.Axes())
		offset, limit := pageParams(c)
		page, pg := paginate(cards, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetFeatureHandler returns one feature.
func GetFeatureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := deps.Session.Store().Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "feature not found")
		}
		return c.JSON(toDTO(f))
	}
}

// SubmitFeatureHandler runs the submission workflow. Fields missing from the
// body are taken from the draft.
func SubmitFeatureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.SubmissionInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				metrics.SubmissionsTotal.WithLabelValues("bad_request").Inc()
				return errBadRequest(c, "invalid request body")
			}
		}
		if in.Location != nil && !in.Location.Finite() {
			metrics.SubmissionsTotal.WithLabelValues("bad_request").Inc()
			return errBadRequest(c, "location must be finite")
		}

		f, err := deps.Submissions.Submit(c.UserContext(), in)
		if err != nil {
			metrics.SubmissionsTotal.WithLabelValues(outcome(err)).Inc()
			return writeDomainError(c, err)
		}
		metrics.SubmissionsTotal.WithLabelValues("ok").Inc()

		c.Location("/v1/features/" + f.ID)
		return c.Status(fiber.StatusCreated).JSON(toDTO(f))
	}
}

// DeleteFeatureHandler removes a feature durably.
func DeleteFeatureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Session.Delete(c.UserContext(), c.Params("id")); err != nil {
			metrics.DeletionsTotal.WithLabelValues(outcome(err)).Inc()
			return writeDomainError(c, err)
		}
		metrics.DeletionsTotal.WithLabelValues("ok").Inc()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MarkersHandler returns the marker layer.
func MarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		markers := projector.Markers(deps.Session.Snapshot(), deps.Session.Axes())
		view := MarkerView{Markers: markers, Padding: projector.FitPadding}
		if b, ok := projector.Extent(markers, 50); ok {
			view.Bounds = &b
		}
		return c.JSON(view)
	}
}

// StatsHandler returns the aggregate panel.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(projector.Stats(deps.Session.Snapshot(), deps.Session.Axes()))
	}
}

// StatusHandler returns the indicator, the active notice and the workflow state.
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(deps.Submissions.View())
	}
}

// GetDraftHandler returns the pending form input.
func GetDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Session.Draft())
	}
}

// PutDraftHandler replaces the pending form input.
func PutDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var d domain.Draft
		if err := c.BodyParser(&d); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if d.Location != nil && !d.Location.Finite() {
			return errBadRequest(c, "location must be finite")
		}
		return c.JSON(deps.Session.UpdateDraft(d))
	}
}

// GeolocationHandler records a geolocation outcome. A denied or failed query
// is not an API error: it is reflected in the status indicator.
func GeolocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var r GeolocationReport
		if err := c.BodyParser(&r); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ok := r.OK && r.Lat != nil && r.Lng != nil
		if ok {
			p := domain.GeoPoint{Lat: *r.Lat, Lng: *r.Lng}
			if !p.Finite() {
				return errBadRequest(c, "location must be finite")
			}
			deps.Session.SetCrosshair(p)
		}
		if err := deps.Session.ReportGeolocation(ok, r.Error); err != nil {
			LoggerFromCtx(c.UserContext()).Debug("geolocation unavailable", "error", err)
		}
		return c.JSON(deps.Submissions.View())
	}
}

// ExportGeoJSONHandler downloads the session as a FeatureCollection.
func ExportGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := export.GeoJSON(deps.Session.Snapshot())
		if err != nil {
			return errInternal(c, err.Error())
		}
		attach(c, deps, "geojson", "application/geo+json")
		return c.Send(data)
	}
}

// ExportCSVHandler downloads the session as CSV.
func ExportCSVHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w := c.Response().BodyWriter()
		if err := export.CSV(w, deps.Session.Snapshot(), deps.Session.Axes()); err != nil {
			return errInternal(c, err.Error())
		}
		attach(c, deps, "csv", "text/csv; charset=utf-8")
		return nil
	}
}

// FinishSessionHandler exports the session as CSV and clears it. When the
// clear fails the export is still delivered and X-Session-Cleared is false.
func FinishSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Session.Finish(c.UserContext())
		var wf *domain.WriteFailure
		switch {
		case err == nil:
			c.Set("X-Session-Cleared", "true")
		case errors.As(err, &wf) && len(data) > 0:
			LoggerFromCtx(c.UserContext()).Warn("session export delivered but not cleared", "error", err)
			c.Set("X-Session-Cleared", "false")
		default:
			return writeDomainError(c, err)
		}
		attach(c, deps, "csv", "text/csv; charset=utf-8")
		return c.Send(data)
	}
}

// ArchiveSessionHandler runs the archive workflow and reloads the session.
func ArchiveSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Archiver == nil {
			return errUnavailable(c, "archiving is not enabled")
		}
		res, err := deps.Archiver.Archive(c.UserContext())
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("archive failed", "error", err)
			return errBadGateway(c, "archive failed: "+err.Error())
		}
		if _, err := deps.Session.Load(c.UserContext()); err != nil {
			LoggerFromCtx(c.UserContext()).Warn("reload after archive failed", "error", err)
		}
		if deps.Hub != nil {
			deps.Hub.RenderAll(c.UserContext())
		}
		return c.JSON(res)
	}
}

func attach(c *fiber.Ctx, deps *Dependencies, ext, contentType string) {
	prefix := deps.Survey.ExportPrefix
	if prefix == "" {
		prefix = "mapsurvey"
	}
	name := export.Filename(prefix, ext, deps.clock().Now())
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Set(fiber.HeaderCacheControl, "no-store")
}

// outcome labels a failed operation for the metrics counters.
func outcome(err error) string {
	var ve *domain.ValidationError
	var wf *domain.WriteFailure
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return "in_flight"
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.As(err, &wf):
		return "write_failed"
	default:
		return "error"
	}
}
