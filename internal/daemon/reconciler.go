// Package daemon contains the long-running maintenance pieces of the scene
// daemon: the drift reconciler that prunes stale window handles the event
// stream missed.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/window"
)

// Registry is the tracked-window surface the reconciler corrects.
type Registry interface {
	Windows() []*window.TrackedWindow
	Drop(platform.WindowHandle)
}

// Prober checks whether a handle still resolves to a live window.
type Prober interface {
	IsWindow(platform.WindowHandle) bool
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it. Destroy
// notifications can be lost when a process dies hard; the reconciler sweeps
// the registry and routes handles that no longer resolve through the normal
// destruction path.
type Reconciler struct {
	interval time.Duration
	registry Registry
	prober   Prober
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, registry Registry, prober Prober) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		registry: registry,
		prober:   prober,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	for _, tw := range r.registry.Windows() {
		h := tw.Handle()
		if r.prober.IsWindow(h) {
			continue
		}
		r.logger.Info("reconciler: stale handle detected",
			"handle", uintptr(h),
			"process", tw.Process().Name)
		r.registry.Drop(h)
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
