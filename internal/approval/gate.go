// Package approval correlates tool invocations awaiting user confirmation
// with the answers that arrive later from the UI.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Decision is the user's answer to an approval request.
type Decision string

const (
	// DecisionYes approves this single invocation.
	DecisionYes Decision = "yes"
	// DecisionNo denies this invocation.
	DecisionNo Decision = "no"
	// DecisionAlways approves this invocation and asks the caller to remember
	// the tool for the rest of the session.
	DecisionAlways Decision = "always"
)

// Request describes one tool invocation waiting for the user.
type Request struct {
	ID       string
	ToolName string
	Args     map[string]any
	Preview  string
	IssuedAt time.Time
}

// Resolution is the final outcome delivered to the waiting requester.
type Resolution struct {
	Decision Decision
	// Reason carries the user's optional message, or the cause of an
	// automatic denial (expiry, cancellation).
	Reason string
}

// Approved reports whether the tool may run.
func (r Resolution) Approved() bool {
	return r.Decision == DecisionYes || r.Decision == DecisionAlways
}

type entry struct {
	request Request
	ch      chan Resolution
}

// Notifier is told about new requests so the UI can surface them. It must not
// block.
type Notifier func(Request)

// Gate is the pending-approval table. Each request is resolved exactly once:
// by the user, by expiry, or by cancellation of the requesting context.
type Gate struct {
	mu       sync.Mutex
	pending  map[string]*entry
	ttl      time.Duration
	notifier Notifier
}

// NewGate creates a Gate. A zero ttl disables expiry.
func NewGate(ttl time.Duration, notifier Notifier) *Gate {
	return &Gate{
		pending:  make(map[string]*entry),
		ttl:      ttl,
		notifier: notifier,
	}
}

// RequestApproval registers a request, notifies the UI and blocks until the
// request is resolved or ctx is done. Cancellation counts as denial so the
// engine can report a deterministic outcome for the tool call.
func (g *Gate) RequestApproval(ctx context.Context, toolName string, args map[string]any, preview string) Resolution {
	req := Request{
		ID:       uuid.NewString(),
		ToolName: toolName,
		Args:     args,
		Preview:  preview,
		IssuedAt: time.Now(),
	}
	e := &entry{
		request: req,
		ch:      make(chan Resolution, 1),
	}

	g.mu.Lock()
	g.pending[req.ID] = e
	g.mu.Unlock()

	if g.notifier != nil {
		g.notifier(req)
	}

	select {
	case res := <-e.ch:
		return res
	case <-ctx.Done():
		// Race with a concurrent Resolve: whoever removes the entry wins.
		if g.take(req.ID) != nil {
			return Resolution{Decision: DecisionNo, Reason: "cancelled"}
		}
		return <-e.ch
	}
}

// Resolve delivers the user's decision with an optional message for the
// model. Unknown or already-resolved IDs are ignored and reported as false.
func (g *Gate) Resolve(id string, decision Decision, message string) bool {
	e := g.take(id)
	if e == nil {
		return false
	}
	e.ch <- Resolution{Decision: decision, Reason: message}
	return true
}

// SweepExpired denies every request older than the TTL and returns their IDs.
// Callers run this periodically; a Gate without a TTL never expires anything.
func (g *Gate) SweepExpired(now time.Time) []string {
	if g.ttl <= 0 {
		return nil
	}

	g.mu.Lock()
	var expired []*entry
	for id, e := range g.pending {
		if now.Sub(e.request.IssuedAt) >= g.ttl {
			delete(g.pending, id)
			expired = append(expired, e)
		}
	}
	g.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, e := range expired {
		e.ch <- Resolution{Decision: DecisionNo, Reason: "approval expired"}
		ids = append(ids, e.request.ID)
	}
	return ids
}

// Pending returns a snapshot of the outstanding requests, oldest first.
func (g *Gate) Pending() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Request, 0, len(g.pending))
	for _, e := range g.pending {
		out = append(out, e.request)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].IssuedAt.Before(out[j-1].IssuedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// take removes and returns the entry for id, or nil if it is gone.
func (g *Gate) take(id string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.pending[id]
	if e != nil {
		delete(g.pending, id)
	}
	return e
}
