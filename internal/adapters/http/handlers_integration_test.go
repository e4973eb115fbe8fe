//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/mapsurvey/internal/adapters/http"
	"github.com/samirrijal/mapsurvey/internal/adapters/persistence"
	"github.com/samirrijal/mapsurvey/internal/adapters/postgres"
	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
	"github.com/samirrijal/mapsurvey/internal/pkg/config"
)

// setupTestDB connects to the database named by MAPSURVEY_DATABASE_* and
// empties survey_features. The migration must have been applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("mapsurvey-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `TRUNCATE survey_features RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func setupRemoteApp(t *testing.T, db *postgres.DB, hydrate bool) (*fiber.App, *handler.Dependencies) {
	t.Helper()
	adapter := persistence.NewRemote(postgres.NewFeatureRepo(db), hydrate, 100)
	session := usecases.NewSession(adapter, domain.DefaultAxes())
	if _, err := session.Load(context.Background()); err != nil {
		t.Fatalf("load session: %v", err)
	}
	deps := &handler.Dependencies{
		Session:     session,
		Submissions: usecases.NewSubmissionWorkflow(session, time.Second, false),
		DB:          db,
		Survey:      config.SurveyConfig{Persistence: domain.PersistenceRemote, ExportPrefix: "mapsurvey"},
	}
	return setupApp(deps), deps
}

func TestSubmitAndDelete_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupTestDB(t)
	app, deps := setupRemoteApp(t, db, false)

	req := httptest.NewRequest("POST", "/v1/features",
		strings.NewReader(`{"location":{"lat":43.263,"lng":-2.935},"place_name":"Ribera","ratings":{"happy":4,"green":3}}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var f handler.FeatureDTO
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The row id is server-assigned and replaces the provisional uuid.
	if len(f.ID) == 36 {
		t.Errorf("expected server id, got provisional %q", f.ID)
	}

	var count int
	if err := db.Pool.QueryRow(context.Background(), `SELECT count(*) FROM survey_features`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/features/"+f.ID, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if deps.Session.Store().Len() != 0 {
		t.Error("store not emptied")
	}
	if err := db.Pool.QueryRow(context.Background(), `SELECT count(*) FROM survey_features`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected 0 rows after delete, got %d", count)
	}
}

func TestHydrateOnLoad_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupTestDB(t)

	repo := postgres.NewFeatureRepo(db)
	seed := []domain.Feature{
		{ID: "seed-1", Timestamp: time.Now().Add(-time.Hour), Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93}, Ratings: map[string]float64{"happy": 2}},
		{ID: "seed-2", Timestamp: time.Now(), Location: domain.GeoPoint{Lat: 43.27, Lng: -2.94}, Ratings: map[string]float64{"happy": 5}},
	}
	if err := repo.InsertBatch(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	app, _ := setupRemoteApp(t, db, true)
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/stats", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var stats domain.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Count != 2 || stats.Axes[0].Average != "3.5 / 5" {
		t.Errorf("unexpected stats after hydrate: %+v", stats)
	}
}

func TestReady_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupTestDB(t)
	app, _ := setupRemoteApp(t, db, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
