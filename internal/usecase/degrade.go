package usecase

import (
	"context"
	"sync"
	"time"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// DefaultRetryCooldown is how long the vector leg stays parked after a
// failure before queries probe it again.
const DefaultRetryCooldown = 15 * time.Second

// DegradationController tracks vector backend availability so repeated
// queries against a dead backend skip the doomed leg instead of waiting
// out its timeout every time. A successful search or health probe clears
// the degraded state immediately.
type DegradationController struct {
	cooldown time.Duration

	mu          sync.Mutex
	degraded    bool
	lastFailure time.Time
}

// NewDegradationController creates a controller with the given retry
// cooldown; zero or negative means DefaultRetryCooldown.
func NewDegradationController(cooldown time.Duration) *DegradationController {
	if cooldown <= 0 {
		cooldown = DefaultRetryCooldown
	}
	return &DegradationController{cooldown: cooldown}
}

// VectorAvailable reports whether the vector leg should be attempted.
// While degraded it returns true once per cooldown window so the backend
// gets periodically re-probed by live traffic.
func (d *DegradationController) VectorAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.degraded {
		return true
	}
	if time.Since(d.lastFailure) >= d.cooldown {
		// Let this query probe; on failure MarkVectorFailure re-arms
		// the cooldown.
		return true
	}
	return false
}

// MarkVectorFailure records a vector leg failure.
func (d *DegradationController) MarkVectorFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.degraded = true
	d.lastFailure = time.Now()
}

// MarkVectorSuccess clears the degraded state.
func (d *DegradationController) MarkVectorSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.degraded = false
}

// Degraded reports the current degraded state without probing.
func (d *DegradationController) Degraded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.degraded
}

// HealthChecker reports the liveness of the retrieval backends.
type HealthChecker struct {
	vector    port.VectorIndex
	cacheName string
	degrade   *DegradationController
}

// NewHealthChecker creates a checker over the vector index and cache
// backend name. degrade may be nil.
func NewHealthChecker(vector port.VectorIndex, cacheName string, degrade *DegradationController) *HealthChecker {
	return &HealthChecker{vector: vector, cacheName: cacheName, degrade: degrade}
}

// Check probes the vector backend and reports the aggregate status. A
// reachable backend clears the degradation flag, an unreachable one sets
// it, so health probes double as recovery probes.
func (h *HealthChecker) Check(ctx context.Context) domain.HealthStatus {
	vh := h.vector.Health(ctx)
	status := domain.HealthStatus{
		VectorReachable:  vh.Reachable,
		CollectionExists: vh.CollectionExists,
		VectorVersion:    vh.Version,
		CacheBackend:     h.cacheName,
	}
	if h.degrade != nil {
		if vh.Reachable {
			h.degrade.MarkVectorSuccess()
		} else {
			h.degrade.MarkVectorFailure()
		}
		status.Degraded = h.degrade.Degraded()
	} else {
		status.Degraded = !vh.Reachable
	}
	return status
}
