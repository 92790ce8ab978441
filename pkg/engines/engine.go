// Package engines implements C4: the plug-in set of detection engines.
// Every engine satisfies the Engine interface — the capability-based
// replacement for an inheritance hierarchy over an abstract base class (see
// DESIGN.md). Engines are independently addable: the aggregator holds a
// slice of Engine and never type-switches on concrete engine types.
package engines

import "github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"

// Engine is the capability every detection engine implements.
type Engine interface {
	// Name is the engine's stable identifier, used in EngineResult.Engine
	// and in configuration.
	Name() string
	// DefaultWeight is the engine's default contribution weight in
	// [0.0, 1.0], used by the aggregator absent an override.
	DefaultWeight() float64
	// Scan evaluates ctx and returns a result. Scan must be side-effect
	// free with respect to the scanned file: it may read bytes but must
	// never modify them. Scan never returns an error; failures are
	// reported via the Error verdict.
	Scan(ctx *scan.Context) scan.EngineResult
}

// clean builds the standard "nothing to report" result for an engine.
func clean(name string) scan.EngineResult {
	return scan.EngineResult{Engine: name, Score: 0, Confidence: 1.0, Verdict: scan.Clean}
}

// errored builds an Error-verdict result, which the aggregator excludes
// entirely from scoring.
func errored(name, reason string) scan.EngineResult {
	return scan.EngineResult{Engine: name, Score: 0, Confidence: 0, Verdict: scan.Error, Reasons: []string{reason}}
}

// Errored is errored exported for callers outside this package (the
// aggregator) that need to synthesize a well-formed Error-verdict result
// for a file that never reached any engine, e.g. one that disappeared
// before it could be stat'd.
func Errored(name, reason string) scan.EngineResult {
	return errored(name, reason)
}
