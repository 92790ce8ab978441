package engines

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// ReputationEngine looks a file's hash up in a small deny set; there is no
// separate allow set, and any hash not in the deny set is Clean. It carries
// a low default weight since reputation data is coarse.
type ReputationEngine struct {
	mu   sync.RWMutex
	deny map[string]string
}

// NewReputationEngine creates a reputation engine, optionally seeded with an
// initial deny set mapping lowercase hex SHA-256 to a label.
func NewReputationEngine(deny map[string]string) *ReputationEngine {
	seeded := make(map[string]string, len(deny))
	for hash, label := range deny {
		seeded[strings.ToLower(hash)] = label
	}
	return &ReputationEngine{deny: seeded}
}

// Name implements Engine.
func (e *ReputationEngine) Name() string { return "reputation" }

// DefaultWeight implements Engine.
func (e *ReputationEngine) DefaultWeight() float64 { return 0.3 }

// MarkBad records hash as having a bad reputation under label.
func (e *ReputationEngine) MarkBad(hash, label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deny[strings.ToLower(hash)] = label
}

// Scan implements Engine.
func (e *ReputationEngine) Scan(ctx *scan.Context) scan.EngineResult {
	e.mu.RLock()
	label, bad := e.deny[strings.ToLower(ctx.SHA256)]
	e.mu.RUnlock()

	if !bad {
		return clean(e.Name())
	}

	return scan.EngineResult{
		Engine:     e.Name(),
		Score:      70,
		Confidence: 0.6,
		Verdict:    scan.Suspicious,
		Reasons:    []string{fmt.Sprintf("poor reputation: %s", label)},
	}
}
