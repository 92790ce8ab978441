// Package action implements C11: the policy layer that decides what
// happens to a scanned file once C6 has produced a verdict — leave it
// alone, quarantine it, delete it, or ask a human. It owns the
// pending-threat ledger; C10 (quarantine) outlives it and is never called
// in the other direction, matching the acyclic component wiring in
// spec.md §9.
package action

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/quarantine"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// Mode selects how the executor responds to a Quarantine or Block verdict.
type Mode string

const (
	AutoQuarantine Mode = "AutoQuarantine"
	AutoBlock      Mode = "AutoBlock"
	AskUser        Mode = "AskUser"
)

// Policy bundles the thresholds and mode the executor consults.
type Policy struct {
	Mode                   Mode
	AskMinScore            int
	AutoQuarantineMinScore int
	MaxRetries             int
	InitialRetryDelay      time.Duration
	MaxRetryDelay          time.Duration
}

// DefaultPolicy returns the spec's default action policy.
func DefaultPolicy() Policy {
	return Policy{
		Mode:                   AutoQuarantine,
		AskMinScore:            20,
		AutoQuarantineMinScore: 80,
		MaxRetries:             3,
		InitialRetryDelay:      50 * time.Millisecond,
		MaxRetryDelay:          2 * time.Second,
	}
}

// ThreatEvent describes what the executor did (or asked the user to
// decide) for one scanned file.
type ThreatEvent struct {
	ID                string
	Path              string
	Result            *scan.AggregatedResult
	ActionTaken       bool
	Outcome           string // the human-readable outcome string, e.g. "Quarantined"
	RecommendedAction string
	Timestamp         time.Time
}

// PendingThreat is a ticket issued when the policy defers to a human.
type PendingThreat struct {
	EventID   string
	Path      string
	Context   scan.Context
	Result    scan.AggregatedResult
	Timestamp time.Time
}

// ResolveAction is the action a caller picks when resolving a pending
// threat.
type ResolveAction string

const (
	ResolveDelete     ResolveAction = "Delete"
	ResolveQuarantine ResolveAction = "Quarantine"
	ResolveAllow      ResolveAction = "Allow"
)

// ResolveResponse is the outcome of resolving a pending threat.
type ResolveResponse struct {
	Success bool
	Error   string
}

// Allowlist is consulted by hash before any policy decision is made.
type Allowlist interface {
	Contains(sha256 string) bool
	Add(sha256 string)
}

// MapAllowlist is a concurrency-safe, in-memory Allowlist implementation.
type MapAllowlist struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

// NewMapAllowlist creates an empty allowlist.
func NewMapAllowlist() *MapAllowlist {
	return &MapAllowlist{entries: make(map[string]struct{})}
}

// Contains reports whether sha256 is allowlisted.
func (a *MapAllowlist) Contains(sha256 string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.entries[sha256]
	return ok
}

// Add allowlists sha256.
func (a *MapAllowlist) Add(sha256 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[sha256] = struct{}{}
}

// Executor applies Policy to aggregated scan results.
type Executor struct {
	policy     atomic.Pointer[Policy]
	allowlist  Allowlist
	quarantine *quarantine.Store

	mu      sync.Mutex
	pending map[string]PendingThreat

	// Signals for a listener such as the IPC broadcast layer (C12); pkg/agent
	// does not read them and broadcasts from Handle's return value instead.
	// Sends are non-blocking: each channel buffers up to 64 signals, and a signal
	// sent while the buffer is full is dropped.
	ThreatActionRequired chan PendingThreat
	ThreatActionApplied  chan ThreatEvent
}

// New creates an Executor with the given policy, allowlist, and
// quarantine store.
func New(policy Policy, allowlist Allowlist, store *quarantine.Store) *Executor {
	e := &Executor{
		allowlist:            allowlist,
		quarantine:           store,
		pending:              make(map[string]PendingThreat),
		ThreatActionRequired: make(chan PendingThreat, 64),
		ThreatActionApplied:  make(chan ThreatEvent, 64),
	}
	e.policy.Store(&policy)
	return e
}

// UpdatePolicy atomically replaces the policy consulted by future calls to
// Handle, letting UpdateSettings take effect without restarting the agent.
func (e *Executor) UpdatePolicy(policy Policy) {
	e.policy.Store(&policy)
}

func (e *Executor) emit(event ThreatEvent) ThreatEvent {
	select {
	case e.ThreatActionApplied <- event:
	default:
	}
	return event
}

// Handle applies policy to result for the file described by scanCtx,
// returning the resulting ThreatEvent.
func (e *Executor) Handle(ctx context.Context, scanCtx scan.Context, result scan.AggregatedResult) ThreatEvent {
	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now()

	if e.allowlist.Contains(scanCtx.SHA256) {
		return e.emit(ThreatEvent{
			ID: id, Path: scanCtx.Path, Result: &result,
			ActionTaken: true, Outcome: "Allowlist",
			RecommendedAction: "None", Timestamp: now,
		})
	}

	if result.Verdict == scan.Allow {
		return e.emit(ThreatEvent{
			ID: id, Path: scanCtx.Path, Result: &result,
			ActionTaken: false, RecommendedAction: "None", Timestamp: now,
		})
	}

	if result.Verdict == scan.Quarantine || result.Verdict == scan.Block {
		return e.emit(e.applyAutomaticPolicy(ctx, id, scanCtx, result, now))
	}

	// A NeedsReview verdict behaves like the AskUser middle band regardless
	// of the configured mode.
	return e.emit(e.applyMiddleBand(id, scanCtx, result, now))
}

// loadPolicy returns the currently active policy, safe for concurrent use
// alongside UpdatePolicy.
func (e *Executor) loadPolicy() Policy {
	return *e.policy.Load()
}

func (e *Executor) applyAutomaticPolicy(ctx context.Context, id string, scanCtx scan.Context, result scan.AggregatedResult, now time.Time) ThreatEvent {
	switch e.loadPolicy().Mode {
	case AutoQuarantine:
		return e.doQuarantine(ctx, id, scanCtx, result, now)
	case AutoBlock:
		return e.doDelete(id, scanCtx, result, now)
	default: // AskUser
		if e.shouldEscalate(result) {
			return e.doQuarantine(ctx, id, scanCtx, result, now)
		}
		return e.applyMiddleBand(id, scanCtx, result, now)
	}
}

func (e *Executor) applyMiddleBand(id string, scanCtx scan.Context, result scan.AggregatedResult, now time.Time) ThreatEvent {
	if result.RiskScore < e.loadPolicy().AskMinScore {
		return ThreatEvent{
			ID: id, Path: scanCtx.Path, Result: &result,
			ActionTaken: false, RecommendedAction: "None", Timestamp: now,
		}
	}

	ticket := PendingThreat{
		EventID: id, Path: scanCtx.Path, Context: scanCtx,
		Result: result, Timestamp: now,
	}
	e.mu.Lock()
	e.pending[id] = ticket
	e.mu.Unlock()

	select {
	case e.ThreatActionRequired <- ticket:
	default:
	}

	return ThreatEvent{
		ID: id, Path: scanCtx.Path, Result: &result,
		ActionTaken: false, RecommendedAction: "NeedsReview", Timestamp: now,
	}
}

func (e *Executor) shouldEscalate(result scan.AggregatedResult) bool {
	if result.RiskScore < e.loadPolicy().AutoQuarantineMinScore {
		return false
	}
	for _, engineResult := range result.Engines {
		if engineResult.Confidence >= 0.9 {
			return true
		}
	}
	return false
}

func (e *Executor) doQuarantine(ctx context.Context, id string, scanCtx scan.Context, result scan.AggregatedResult, now time.Time) ThreatEvent {
	threatName := "Unknown"
	if len(result.Reasons) > 0 {
		threatName = result.Reasons[0]
	}

	policy := e.loadPolicy()
	_, err := e.quarantine.QuarantineFile(ctx, scanCtx.Path, threatName, policy.MaxRetries, policy.InitialRetryDelay, policy.MaxRetryDelay)
	if err != nil {
		return ThreatEvent{
			ID: id, Path: scanCtx.Path, Result: &result,
			ActionTaken: false, Outcome: "QuarantineFailed: " + err.Error(),
			RecommendedAction: "Quarantine", Timestamp: now,
		}
	}
	return ThreatEvent{
		ID: id, Path: scanCtx.Path, Result: &result,
		ActionTaken: true, Outcome: "Quarantined",
		RecommendedAction: "Quarantine", Timestamp: now,
	}
}

func (e *Executor) doDelete(id string, scanCtx scan.Context, result scan.AggregatedResult, now time.Time) ThreatEvent {
	if err := deleteFile(scanCtx.Path); err != nil {
		return ThreatEvent{
			ID: id, Path: scanCtx.Path, Result: &result,
			ActionTaken: false, Outcome: "DeleteFailed: " + err.Error(),
			RecommendedAction: "Block", Timestamp: now,
		}
	}
	return ThreatEvent{
		ID: id, Path: scanCtx.Path, Result: &result,
		ActionTaken: true, Outcome: "Deleted",
		RecommendedAction: "Block", Timestamp: now,
	}
}

// Resolve applies a user's decision for a previously registered pending
// threat.
func (e *Executor) Resolve(ctx context.Context, eventID string, resolveAction ResolveAction, addToExclusions bool) ResolveResponse {
	e.mu.Lock()
	ticket, ok := e.pending[eventID]
	if ok {
		delete(e.pending, eventID)
	}
	e.mu.Unlock()

	if !ok {
		return ResolveResponse{Success: false, Error: "pending threat not found"}
	}

	switch resolveAction {
	case ResolveDelete:
		if err := deleteFile(ticket.Path); err != nil {
			return ResolveResponse{Success: false, Error: err.Error()}
		}
		e.emit(ThreatEvent{
			ID: eventID, Path: ticket.Path, Result: &ticket.Result,
			ActionTaken: true, Outcome: "Deleted", RecommendedAction: "Block", Timestamp: time.Now(),
		})
	case ResolveQuarantine:
		threatName := "Unknown"
		if len(ticket.Result.Reasons) > 0 {
			threatName = ticket.Result.Reasons[0]
		}
		policy := e.loadPolicy()
		if _, err := e.quarantine.QuarantineFile(ctx, ticket.Path, threatName, policy.MaxRetries, policy.InitialRetryDelay, policy.MaxRetryDelay); err != nil {
			return ResolveResponse{Success: false, Error: err.Error()}
		}
		e.emit(ThreatEvent{
			ID: eventID, Path: ticket.Path, Result: &ticket.Result,
			ActionTaken: true, Outcome: "Quarantined", RecommendedAction: "Quarantine", Timestamp: time.Now(),
		})
	case ResolveAllow:
		if addToExclusions {
			e.allowlist.Add(ticket.Context.SHA256)
		}
	default:
		return ResolveResponse{Success: false, Error: fmt.Sprintf("unknown resolve action %q", resolveAction)}
	}

	return ResolveResponse{Success: true}
}

// PendingCount returns the number of outstanding pending threats.
func (e *Executor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// ListPending returns a snapshot of every outstanding pending threat
// ticket, so a caller (the IPC GetPendingThreats handler) can let a human
// resolve them rather than merely see a count.
func (e *Executor) ListPending() []PendingThreat {
	e.mu.Lock()
	defer e.mu.Unlock()
	tickets := make([]PendingThreat, 0, len(e.pending))
	for _, ticket := range e.pending {
		tickets = append(tickets, ticket)
	}
	return tickets
}

func deleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "unable to delete %q", path)
	}
	return nil
}
