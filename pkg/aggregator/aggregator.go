// Package aggregator implements C6: it runs the configured detection
// engines against a file, combines their results into a single weighted
// risk score and verdict, and consults/populates the scan cache.
package aggregator

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/cache"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/engines"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/hashing"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// Thresholds holds the three configurable score thresholds that drive
// verdict assignment.
type Thresholds struct {
	// Block is the weighted-score threshold at or above which the verdict
	// is Block.
	Block int
	// Quarantine is the weighted-score threshold at or above which the
	// verdict is Quarantine.
	Quarantine int
	// Review is the weighted-score threshold at or above which the
	// verdict is NeedsReview.
	Review int
}

// DefaultThresholds returns the spec's default thresholds (80/50/20).
func DefaultThresholds() Thresholds {
	return Thresholds{Block: 80, Quarantine: 50, Review: 20}
}

// EngineWeight pairs an engine with its effective weight, letting callers
// override an engine's DefaultWeight without modifying the engine itself.
type EngineWeight struct {
	Engine engines.Engine
	Weight float64
}

// Aggregator is C6. It owns the set of detection engines, their weights,
// and the scan cache.
type Aggregator struct {
	engines    []EngineWeight
	cache      *cache.Cache
	thresholds Thresholds
	logger     *logging.Logger
}

// New creates an Aggregator from a set of engines (each contributing its own
// DefaultWeight), a cache, and verdict thresholds.
func New(engineSet []engines.Engine, scanCache *cache.Cache, thresholds Thresholds, logger *logging.Logger) *Aggregator {
	weighted := make([]EngineWeight, len(engineSet))
	for i, e := range engineSet {
		weighted[i] = EngineWeight{Engine: e, Weight: e.DefaultWeight()}
	}
	return &Aggregator{engines: weighted, cache: scanCache, thresholds: thresholds, logger: logger}
}

// NewWithWeights creates an Aggregator from explicit engine/weight pairs,
// for callers that want to override default weights from configuration.
func NewWithWeights(engineSet []EngineWeight, scanCache *cache.Cache, thresholds Thresholds, logger *logging.Logger) *Aggregator {
	return &Aggregator{engines: append([]EngineWeight(nil), engineSet...), cache: scanCache, thresholds: thresholds, logger: logger}
}

// Scan populates a ScanContext for path (computing hashes if they aren't
// already known), consults the cache, runs every engine, aggregates their
// results, stores the aggregated result in the cache, and returns it.
// Missing files never cause an error: Scan returns a minimal Allow result.
func (a *Aggregator) Scan(ctx context.Context, path string) scan.AggregatedResult {
	_, result := a.ScanWithContext(ctx, path)
	return result
}

// ScanWithContext behaves like Scan but also returns the scan.Context that
// was built for path, so that callers (like the action executor) can
// consult fields such as SHA256 that AggregatedResult doesn't carry.
func (a *Aggregator) ScanWithContext(ctx context.Context, path string) (scan.Context, scan.AggregatedResult) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		errResult := engines.Errored("stat", err.Error())
		return scan.Context{Path: path}, scan.AggregatedResult{
			Path:     path,
			Verdict:  scan.Allow,
			Reasons:  errResult.Reasons,
			Engines:  []scan.EngineResult{errResult},
			Duration: time.Since(start),
		}
	}

	sha256, md5, hashErr := hashing.Both(ctx, path)
	if hashErr != nil {
		a.logger.Warnf("unable to hash %q: %v", path, hashErr)
	}

	scanCtx := scan.Context{
		Path:          path,
		Size:          info.Size(),
		SHA256:        sha256,
		MD5:           md5,
		LastWriteTime: info.ModTime(),
	}

	if sha256 != "" {
		key := cache.Key{SHA256: sha256, Size: info.Size(), LastWriteTime: info.ModTime()}
		if cached, ok := a.cache.TryGet(key); ok {
			return scanCtx, cached
		}
	}

	result := a.aggregate(&scanCtx)
	result.Duration = time.Since(start)

	if sha256 != "" {
		key := cache.Key{SHA256: sha256, Size: info.Size(), LastWriteTime: info.ModTime()}
		a.cache.Store(key, result)
	}

	return scanCtx, result
}

// ScanContext runs every engine against an already-populated context and
// aggregates the results, without touching the cache. It's exposed directly
// for callers (like tests) that construct a scan.Context themselves.
func (a *Aggregator) ScanContext(scanCtx *scan.Context) scan.AggregatedResult {
	start := time.Now()
	result := a.aggregate(scanCtx)
	result.Duration = time.Since(start)
	return result
}

// aggregate runs every engine (in parallel; cross-engine ordering must not
// affect the verdict) and combines their results.
func (a *Aggregator) aggregate(scanCtx *scan.Context) scan.AggregatedResult {
	results := make([]scan.EngineResult, len(a.engines))

	var wg sync.WaitGroup
	for i, ew := range a.engines {
		wg.Add(1)
		go func(i int, ew EngineWeight) {
			defer wg.Done()
			results[i] = ew.Engine.Scan(scanCtx)
		}(i, ew)
	}
	wg.Wait()

	return combine(scanCtx.Path, a.engines, results, a.thresholds)
}

// combine implements the weighted-score and verdict-assignment rules of
// spec.md §4.6. It is a pure function of the per-engine results so that its
// correctness doesn't depend on concurrency.
func combine(path string, engineSet []EngineWeight, results []scan.EngineResult, thresholds Thresholds) scan.AggregatedResult {
	var weightedSum, weightSum float64
	var maliciousCount int
	var forceBlock bool
	var suspiciousSeen bool
	var reasons []string
	var kept []scan.EngineResult

	for i, result := range results {
		kept = append(kept, result)

		if result.Verdict == scan.Error {
			continue
		}

		weight := engineSet[i].Weight
		confidence := result.Confidence
		if confidence < 0.25 {
			confidence = 0.25
		}
		weightedSum += float64(result.Score) * weight * confidence
		weightSum += weight

		if result.Verdict == scan.Malicious {
			maliciousCount++
			if result.Confidence >= 0.9 {
				forceBlock = true
			}
		}
		if result.Verdict == scan.Suspicious {
			suspiciousSeen = true
		}

		reasons = append(reasons, result.Reasons...)
	}

	score := 0.0
	if weightSum > 0 {
		score = weightedSum / weightSum
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	riskScore := int(score + 0.5)

	var verdict scan.Verdict
	switch {
	case forceBlock:
		verdict = scan.Block
	case riskScore >= thresholds.Block:
		verdict = scan.Block
	case riskScore >= thresholds.Quarantine || maliciousCount >= 2:
		verdict = scan.Quarantine
	case riskScore >= thresholds.Review || suspiciousSeen:
		verdict = scan.NeedsReview
	default:
		verdict = scan.Allow
	}

	return scan.AggregatedResult{
		Path:      path,
		RiskScore: riskScore,
		Verdict:   verdict,
		Reasons:   reasons,
		Engines:   kept,
	}
}
