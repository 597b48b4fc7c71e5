// Package health aggregates component checks into one report for the /health
// endpoint.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State is the health of one component or of the whole service.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name     string                 `json:"name"`
	Status   State                  `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Duration time.Duration          `json:"duration"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Report is the aggregated outcome of every registered check.
type Report struct {
	Overall    State                      `json:"overall"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// Check probes one component.
type Check interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

type funcCheck struct {
	name     string
	critical bool
	probe    func(ctx context.Context) error
}

// Func adapts a probe function into a Check. A failing critical probe marks
// the component unhealthy; any other failure only degrades it.
func Func(name string, critical bool, probe func(ctx context.Context) error) Check {
	return funcCheck{name: name, critical: critical, probe: probe}
}

func (f funcCheck) Name() string { return f.name }

func (f funcCheck) Check(ctx context.Context) ComponentHealth {
	start := time.Now()
	err := f.probe(ctx)
	h := ComponentHealth{
		Name:     f.name,
		Status:   StateHealthy,
		Duration: time.Since(start),
	}
	if err != nil {
		h.Status = StateDegraded
		if f.critical {
			h.Status = StateUnhealthy
		}
		h.Error = err.Error()
	}
	return h
}

// Checker runs registered checks concurrently, each bounded by timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  []Check
	timeout time.Duration
	logger  *logrus.Logger
}

// NewChecker creates a checker. A zero timeout defaults to 2s.
func NewChecker(timeout time.Duration, logger *logrus.Logger, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{checks: checks, timeout: timeout, logger: logger}
}

// Register adds a check.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Run executes every check and aggregates the worst state.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]Check(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()
			results[i] = check.Check(checkCtx)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Overall:    StateHealthy,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]ComponentHealth, len(results)),
	}
	var failing []string
	for _, r := range results {
		report.Components[r.Name] = r
		if rank(r.Status) > rank(report.Overall) {
			report.Overall = r.Status
		}
		if r.Status != StateHealthy {
			failing = append(failing, r.Name)
		}
	}

	if len(failing) > 0 {
		sort.Strings(failing)
		c.logger.WithFields(logrus.Fields{
			"overall":    report.Overall,
			"components": failing,
		}).Warn("Health check found failing components")
	}
	return report
}

func rank(s State) int {
	switch s {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}
