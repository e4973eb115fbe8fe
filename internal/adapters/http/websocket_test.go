package http

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	natsadapter "github.com/samirrijal/mapsurvey/internal/adapters/nats"
	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
)

type nopAdapter struct{}

func (nopAdapter) Mode() domain.PersistenceMode { return domain.PersistenceNone }
func (nopAdapter) Insert(context.Context, domain.Feature, []domain.Feature) (string, error) {
	return "", nil
}
func (nopAdapter) Delete(context.Context, string, []domain.Feature) error { return nil }
func (nopAdapter) Clear(context.Context, []domain.Feature) error          { return nil }
func (nopAdapter) Load(context.Context) ([]domain.Feature, error)         { return nil, nil }
func (nopAdapter) Restore(context.Context, []domain.Feature) error        { return nil }

// recorder captures what a client would receive.
type recorder struct {
	mu   sync.Mutex
	msgs []serverMessage
}

func (r *recorder) write(_ int, data []byte) error {
	if data == nil {
		return nil
	}
	var m serverMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Type
	}
	return out
}

func (r *recorder) last() serverMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

func newTestHub(t *testing.T) (*Hub, *usecases.Session, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	session := usecases.NewSession(nopAdapter{}, domain.DefaultAxes(), usecases.WithClock(clk))
	hub := NewHub(session, HubConfig{
		Center: domain.GeoPoint{Lat: 47.07, Lng: 15.44},
		Zoom:   13,
		Tick:   16 * time.Millisecond,
		Clock:  clk,
	})
	return hub, session, clk
}

func equalTypes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestHub_GreetRendersMap(t *testing.T) {
	hub, session, _ := newTestHub(t)
	session.Store().ReplaceAll([]domain.Feature{{
		ID:        "a",
		Timestamp: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
		Location:  domain.GeoPoint{Lat: 47.07, Lng: 15.44},
		Ratings:   map[string]float64{"happy": 5, "green": 3},
	}})

	rec := &recorder{}
	c := hub.attach(rec.write)
	defer hub.detach(c)

	if err := hub.greet(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	want := []string{msgSetView, msgClearMarkers, msgAddMarker, msgFitBounds, msgStatus}
	if got := rec.types(); !equalTypes(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if hub.Clients() != 1 {
		t.Errorf("expected 1 client, got %d", hub.Clients())
	}
}

func TestHub_CenterIsThrottledIntoCrosshair(t *testing.T) {
	hub, session, clk := newTestHub(t)
	rec := &recorder{}
	c := hub.attach(rec.write)
	defer hub.detach(c)

	ctx := context.Background()
	for _, body := range []string{
		`{"action":"center","lat":47.0,"lng":15.0}`,
		`{"action":"center","lat":47.1,"lng":15.1}`,
	} {
		if err := hub.handle(ctx, c, []byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if len(rec.types()) != 0 {
		t.Fatalf("crosshair sent before the tick: %v", rec.types())
	}

	if err := clk.WaitAdvance(16*time.Millisecond, time.Second, 1); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.types()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := rec.types(); !equalTypes(got, []string{msgCrosshair}) {
		t.Fatalf("expected one crosshair message, got %v", got)
	}
	m := rec.last()
	if m.Center == nil || m.Center.Lat != 47.1 || m.Label != "47.10000, 15.10000" {
		t.Errorf("unexpected crosshair: %+v", m)
	}
	if loc := session.Draft().Location; loc == nil || loc.Lat != 47.1 {
		t.Errorf("draft crosshair not updated: %+v", loc)
	}
}

func TestHub_Geolocation(t *testing.T) {
	hub, session, _ := newTestHub(t)
	rec := &recorder{}
	c := hub.attach(rec.write)
	defer hub.detach(c)
	ctx := context.Background()

	if err := hub.handle(ctx, c, []byte(`{"action":"geolocation","ok":true,"lat":48.2,"lng":16.37}`)); err != nil {
		t.Fatal(err)
	}
	if got := rec.types(); !equalTypes(got, []string{msgSetView, msgCrosshair}) {
		t.Fatalf("unexpected messages: %v", got)
	}
	if rec.msgs[0].Zoom != 16 {
		t.Errorf("expected locate zoom, got %d", rec.msgs[0].Zoom)
	}
	if session.Status().Status().Level != domain.StatusOK {
		t.Error("expected ok status")
	}

	rec.reset()
	if err := hub.handle(ctx, c, []byte(`{"action":"geolocation","ok":false,"error":"timeout"}`)); err != nil {
		t.Fatal(err)
	}
	if got := rec.types(); !equalTypes(got, []string{msgError}) {
		t.Fatalf("unexpected messages: %v", got)
	}
	if session.Status().Status().Level != domain.StatusWarn {
		t.Error("expected warn status")
	}
}

func TestHub_RejectsBadMessages(t *testing.T) {
	hub, _, _ := newTestHub(t)
	rec := &recorder{}
	c := hub.attach(rec.write)
	defer hub.detach(c)
	ctx := context.Background()

	for _, body := range []string{`not json`, `{"action":"fly"}`, `{"action":"center","lat":1}`} {
		rec.reset()
		if err := hub.handle(ctx, c, []byte(body)); err != nil {
			t.Fatal(err)
		}
		if got := rec.types(); !equalTypes(got, []string{msgError}) {
			t.Errorf("%s: expected error message, got %v", body, got)
		}
	}
}

func TestHub_PublishesToAllClients(t *testing.T) {
	hub, session, _ := newTestHub(t)
	a, b := &recorder{}, &recorder{}
	ca, cb := hub.attach(a.write), hub.attach(b.write)
	defer hub.detach(ca)
	defer hub.detach(cb)
	ctx := context.Background()

	f := domain.Feature{ID: "x", Location: domain.GeoPoint{Lat: 1, Lng: 2}}
	session.Store().ReplaceAll([]domain.Feature{f})
	if err := hub.PublishFeatureAdded(ctx, &f); err != nil {
		t.Fatal(err)
	}
	for _, r := range []*recorder{a, b} {
		if got := r.types(); !equalTypes(got, []string{msgClearMarkers, msgAddMarker, msgFitBounds}) {
			t.Errorf("unexpected render: %v", got)
		}
	}

	a.reset()
	raw := []byte(`{"type":"features.cleared"}`)
	if err := hub.Relay(ctx, natsadapter.Event{Type: natsadapter.EventCleared}, raw); err != nil {
		t.Fatal(err)
	}
	if m := a.last(); m.Type != msgEvent || string(m.Event) != string(raw) {
		t.Errorf("unexpected relay: %+v", m)
	}

	hub.detach(cb)
	if hub.Clients() != 1 {
		t.Errorf("expected 1 client after detach, got %d", hub.Clients())
	}
}
