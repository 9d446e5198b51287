package handlers

import (
	"sync/atomic"
	"time"

	"variant-server/internal/ledger"
	"variant-server/internal/service"
	"variant-server/internal/startup"
)

// Handlers bundles the HTTP endpoints with their dependencies.
type Handlers struct {
	svc       *service.Service
	ledger    *ledger.Ledger // nil when the ledger is disabled
	mediaDir  string
	startTime time.Time
	ready     atomic.Bool
}

func New(svc *service.Service, led *ledger.Ledger, config *startup.Config) *Handlers {
	return &Handlers{
		svc:       svc,
		ledger:    led,
		mediaDir:  config.MediaDir,
		startTime: time.Now(),
	}
}

// SetReady marks the service ready to accept traffic. Called once the
// transform engine probe has passed.
func (h *Handlers) SetReady() {
	h.ready.Store(true)
}

// IsReady reports whether startup has completed.
func (h *Handlers) IsReady() bool {
	return h.ready.Load()
}
