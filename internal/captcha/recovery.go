package captcha

import (
	"context"
	"fmt"
	"time"
)

// DefaultGrace is how long the page gets to react after a token is submitted.
const DefaultGrace = 5 * time.Second

// Outcome is the result of one recovery attempt.
type Outcome struct {
	Solved   bool
	Modality string // "" when nothing was present
	Reason   string
}

// Recovery runs one detect, solve, inject and settle cycle per stall.
type Recovery struct {
	Page       Page
	Solver     Solver // nil when no API key is configured
	Modalities []Modality
	Grace      time.Duration
}

// NewRecovery tries the token callback first, then the image flow.
func NewRecovery(page Page, solver Solver) *Recovery {
	return &Recovery{
		Page:       page,
		Solver:     solver,
		Modalities: []Modality{TokenCallback{}, ImageSelect{CheckboxWait: 3 * time.Second}},
		Grace:      DefaultGrace,
	}
}

// Attempt makes a single pass. The solver is called at most once. In-flight
// page and solver calls are not interrupted by ctx cancellation.
func (r *Recovery) Attempt(ctx context.Context, logf Logf) (out Outcome) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Modality: out.Modality, Reason: fmt.Sprintf("recovery panicked: %v", p)}
			logf("CAPTCHA recovery failed: %s", out.Reason)
		}
	}()

	callCtx := context.WithoutCancel(ctx)

	var m Modality
	for _, cand := range r.Modalities {
		if cand.Present(callCtx, r.Page) {
			m = cand
			break
		}
	}
	if m == nil {
		return Outcome{Solved: true, Reason: "no challenge present"}
	}
	out.Modality = m.Name()
	logf("CAPTCHA detected (%s)", m.Name())

	if r.Solver == nil {
		out.Reason = "solver API key not configured"
		logf("CAPTCHA recovery failed: %s", out.Reason)
		return out
	}

	if err := m.Resolve(callCtx, r.Page, r.Solver); err != nil {
		out.Reason = err.Error()
		logf("CAPTCHA recovery failed: %s", out.Reason)
		return out
	}

	sleep(ctx, r.Grace)
	out.Solved = true
	out.Reason = "solved"
	logf("CAPTCHA solved (%s)", m.Name())
	return out
}
