package handler

import (
	"context"
	"sort"
	"time"
)

// Pinger is a dependency the service needs to be ready (Postgres pool, Redis client, policy engine).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Status is the outcome of one readiness probe.
type Status struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Checker probes named dependencies. Nil pingers are skipped.
type Checker struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewChecker returns a Checker with a 2s per-probe timeout.
func NewChecker(checks map[string]Pinger) *Checker {
	c := &Checker{checks: make(map[string]Pinger), timeout: 2 * time.Second}
	for name, p := range checks {
		if p != nil {
			c.checks[name] = p
		}
	}
	return c
}

// Check runs every probe and reports whether all passed. Results are sorted by name.
func (c *Checker) Check(ctx context.Context) ([]Status, bool) {
	out := make([]Status, 0, len(c.checks))
	ready := true
	for name, p := range c.checks {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := p.Ping(pctx)
		cancel()
		st := Status{Name: name, OK: err == nil}
		if err != nil {
			st.Error = err.Error()
			ready = false
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, ready
}
