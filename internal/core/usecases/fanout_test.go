package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
)

type failingPublisher struct{ recordingPublisher }

func (p *failingPublisher) PublishCleared(ctx context.Context) error {
	return errors.New("broker down")
}

func TestFanOut_DeliversToAllDespiteFailure(t *testing.T) {
	bad := &failingPublisher{}
	good := &recordingPublisher{}
	fan := usecases.FanOut{bad, nil, good}

	err := fan.PublishCleared(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if ev := good.Events(); len(ev) != 1 || ev[0] != "cleared" {
		t.Errorf("second publisher not reached: %v", ev)
	}

	if err := fan.PublishFeatureAdded(context.Background(), &domain.Feature{ID: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := good.Events(); len(ev) != 2 || ev[1] != "added:x" {
		t.Errorf("unexpected events: %v", ev)
	}
}
