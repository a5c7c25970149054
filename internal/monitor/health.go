// health.go - Component health checks.
package monitor

import (
	"sort"
	"sync"
	"time"
)

// HealthStatus is the state of a component or of the whole node.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// ComponentHealth is the last check result of one component.
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency,omitempty"`
}

// SystemHealth is the body served on /healthz.
type SystemHealth struct {
	OverallStatus HealthStatus      `json:"overall_status"`
	Timestamp     time.Time         `json:"timestamp"`
	Components    []ComponentHealth `json:"components"`
	Uptime        time.Duration     `json:"uptime"`
	Version       string            `json:"version"`
}

// Health runs registered checks.
type Health struct {
	mu         sync.Mutex
	components map[string]*ComponentHealth
	checkers   map[string]func() error
	startTime  time.Time
	version    string
}

// NewHealth returns a checker reporting version.
func NewHealth(version string) *Health {
	return &Health{
		components: make(map[string]*ComponentHealth),
		checkers:   make(map[string]func() error),
		startTime:  time.Now(),
		version:    version,
	}
}

// Register adds a component. A nil checker leaves the status to Update.
func (h *Health) Register(name string, checker func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = &ComponentHealth{Name: name, Status: Healthy, Message: "registered", LastCheck: time.Now()}
	if checker != nil {
		h.checkers[name] = checker
	}
}

// Update sets a component's status directly.
func (h *Health) Update(name string, status HealthStatus, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.components[name]; ok {
		c.Status = status
		c.Message = message
		c.LastCheck = time.Now()
	}
}

// Check runs every checker and returns the combined status.
func (h *Health) Check() *SystemHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	overall := Healthy
	components := make([]ComponentHealth, 0, len(h.components))
	for name, c := range h.components {
		if check, ok := h.checkers[name]; ok {
			start := time.Now()
			err := check()
			c.Latency = time.Since(start)
			c.LastCheck = time.Now()
			if err != nil {
				c.Status = Unhealthy
				c.Message = err.Error()
			} else {
				c.Status = Healthy
				c.Message = "ok"
			}
		}
		switch {
		case c.Status == Unhealthy:
			overall = Unhealthy
		case c.Status == Degraded && overall == Healthy:
			overall = Degraded
		}
		components = append(components, *c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	return &SystemHealth{
		OverallStatus: overall,
		Timestamp:     time.Now(),
		Components:    components,
		Uptime:        time.Since(h.startTime),
		Version:       h.version,
	}
}
