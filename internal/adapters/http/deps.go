package http

import (
	"github.com/juju/clock"

	natsadapter "github.com/samirrijal/mapsurvey/internal/adapters/nats"
	"github.com/samirrijal/mapsurvey/internal/adapters/postgres"
	"github.com/samirrijal/mapsurvey/internal/adapters/valkey"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
	"github.com/samirrijal/mapsurvey/internal/pkg/config"
)

// Dependencies holds everything the HTTP handlers need. Only Session,
// Submissions and Survey are required; the rest may be nil.
type Dependencies struct {
	Session     *usecases.Session
	Submissions *usecases.SubmissionWorkflow
	Archiver    ports.Archiver
	Hub         *Hub
	Publisher   *natsadapter.Publisher
	Subscriber  *natsadapter.Subscriber
	DB          *postgres.DB
	KV          *valkey.Store
	Survey      config.SurveyConfig
	Clock       clock.Clock
}

func (d *Dependencies) clock() clock.Clock {
	if d.Clock == nil {
		return clock.WallClock
	}
	return d.Clock
}
