package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// noticeFallback is used when no display duration is configured.
const noticeFallback = 3 * time.Second

// SubmissionInput is the form as sent by the user. Empty fields fall back to
// the session draft; a nil Location falls back to the crosshair.
type SubmissionInput struct {
	Location  *domain.GeoPoint   `json:"location,omitempty"`
	PlaceName string             `json:"place_name"`
	Ratings   map[string]float64 `json:"ratings"`
	Comment   string             `json:"comment"`
	AgeGroup  string             `json:"age_group"`
	Gender    string             `json:"gender"`
}

// SubmissionWorkflow drives Idle → Validating → Submitting → {Success, Failed} → Idle.
type SubmissionWorkflow struct {
	session             *Session
	clock               clock.Clock
	noticeDuration      time.Duration
	requireDemographics bool

	inflight atomic.Bool

	mu        sync.Mutex
	state     domain.SubmissionState
	idleTimer clock.Timer
}

// NewSubmissionWorkflow creates a workflow in the Idle state.
func NewSubmissionWorkflow(session *Session, noticeDuration time.Duration, requireDemographics bool) *SubmissionWorkflow {
	if noticeDuration <= 0 {
		noticeDuration = noticeFallback
	}
	return &SubmissionWorkflow{
		session:             session,
		clock:               session.clock,
		noticeDuration:      noticeDuration,
		requireDemographics: requireDemographics,
		state:               domain.StateIdle,
	}
}

// State returns the current state.
func (w *SubmissionWorkflow) State() domain.SubmissionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// View is the status endpoint payload.
func (w *SubmissionWorkflow) View() domain.StatusView {
	return w.session.View(w.State())
}

// Submit validates in, builds a feature and commits it. A submit that overlaps
// one in Validating or Submitting is rejected with ErrSubmissionInFlight and
// changes nothing.
func (w *SubmissionWorkflow) Submit(ctx context.Context, in SubmissionInput) (domain.Feature, error) {
	if err := w.session.Available(); err != nil {
		return domain.Feature{}, err
	}
	if !w.inflight.CompareAndSwap(false, true) {
		return domain.Feature{}, domain.ErrSubmissionInFlight
	}
	defer w.inflight.Store(false)

	w.transition(domain.StateValidating)
	draft := w.merge(in)
	if err := w.validate(draft); err != nil {
		w.transition(domain.StateIdle)
		w.session.status.Set(domain.StatusWarn, err.Error())
		return domain.Feature{}, err
	}

	w.transition(domain.StateSubmitting)
	f := domain.Feature{
		ID:        w.session.newID(),
		Timestamp: w.clock.Now().UTC(),
		Location:  *draft.Location,
		PlaceName: strings.TrimSpace(draft.PlaceName),
		Ratings:   draft.Ratings,
		Comment:   strings.TrimSpace(draft.Comment),
		AgeGroup:  draft.AgeGroup,
		Gender:    draft.Gender,
	}

	committed, err := w.session.commit(ctx, f)
	if err != nil {
		w.transition(domain.StateFailed)
		w.session.status.Notify(domain.NoticeError, failureText(err), w.noticeDuration)
		w.scheduleIdle()
		return domain.Feature{}, err
	}

	w.transition(domain.StateSuccess)
	w.session.clearTransient()
	w.session.status.Set(domain.StatusOK, "Ready")
	w.session.status.Notify(domain.NoticeSuccess, "Response saved", w.noticeDuration)
	w.scheduleIdle()
	return committed, nil
}

func (w *SubmissionWorkflow) merge(in SubmissionInput) domain.Draft {
	d := w.session.Draft()
	if in.Location != nil {
		loc := *in.Location
		d.Location = &loc
	}
	if in.PlaceName != "" {
		d.PlaceName = in.PlaceName
	}
	if in.Comment != "" {
		d.Comment = in.Comment
	}
	if in.AgeGroup != "" {
		d.AgeGroup = in.AgeGroup
	}
	if in.Gender != "" {
		d.Gender = in.Gender
	}
	if len(in.Ratings) > 0 {
		if d.Ratings == nil {
			d.Ratings = make(map[string]float64, len(in.Ratings))
		}
		for k, v := range in.Ratings {
			d.Ratings[k] = v
		}
	}
	return d
}

func (w *SubmissionWorkflow) validate(d domain.Draft) error {
	if d.Location == nil {
		return &domain.ValidationError{Field: "location"}
	}
	if w.requireDemographics {
		if strings.TrimSpace(d.AgeGroup) == "" {
			return &domain.ValidationError{Field: "age_group"}
		}
		if strings.TrimSpace(d.Gender) == "" {
			return &domain.ValidationError{Field: "gender"}
		}
	}
	return nil
}

func (w *SubmissionWorkflow) transition(s domain.SubmissionState) {
	w.mu.Lock()
	if w.idleTimer != nil {
		w.idleTimer.Stop()
		w.idleTimer = nil
	}
	w.state = s
	w.mu.Unlock()
}

// scheduleIdle returns to Idle once the outcome notice has been shown.
func (w *SubmissionWorkflow) scheduleIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	var t clock.Timer
	t = w.clock.AfterFunc(w.noticeDuration, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.idleTimer != t {
			return
		}
		w.state = domain.StateIdle
		w.idleTimer = nil
	})
	w.idleTimer = t
}

func failureText(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateID):
		return "Response already saved"
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return "Storage unavailable"
	default:
		return "Could not save response"
	}
}
