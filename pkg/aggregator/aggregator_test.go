package aggregator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/cache"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/engines"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/hashing"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/signatures"
)

// fakeEngine lets tests dictate an exact EngineResult.
type fakeEngine struct {
	name   string
	weight float64
	result scan.EngineResult
}

func (f *fakeEngine) Name() string           { return f.name }
func (f *fakeEngine) DefaultWeight() float64 { return f.weight }
func (f *fakeEngine) Scan(*scan.Context) scan.EngineResult {
	return f.result
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestScanRiskScoreAndVerdictInRange(t *testing.T) {
	db := signatures.New()
	agg := New([]engines.Engine{
		engines.NewSignatureEngine(db),
		engines.NewScriptEngine(),
		engines.NewMLEngine(),
	}, cache.New(time.Minute, 100), DefaultThresholds(), nil)

	path := writeFile(t, "This is a clean file.")
	result := agg.Scan(context.Background(), path)

	require.GreaterOrEqual(t, result.RiskScore, 0)
	require.LessOrEqual(t, result.RiskScore, 100)
	require.Contains(t, []scan.Verdict{scan.Allow, scan.NeedsReview, scan.Quarantine, scan.Block}, result.Verdict)
}

func TestEICARByHashBlocks(t *testing.T) {
	db := signatures.New()
	agg := New([]engines.Engine{engines.NewSignatureEngine(db)}, cache.New(time.Minute, 100), DefaultThresholds(), nil)

	path := writeFile(t, `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)
	sha, err := hashing.SHA256(context.Background(), path)
	require.NoError(t, err)

	scanCtx := &scan.Context{Path: path, SHA256: sha}
	result := agg.ScanContext(scanCtx)

	require.Equal(t, scan.Block, result.Verdict)
	require.GreaterOrEqual(t, result.RiskScore, 80)
	require.Contains(t, joinReasons(result.Reasons), "EICAR")
}

func TestEICARByContentBlocks(t *testing.T) {
	db := signatures.New()
	agg := New([]engines.Engine{engines.NewSignatureEngine(db)}, cache.New(time.Minute, 100), DefaultThresholds(), nil)

	scanCtx := &scan.Context{Path: "eicar.com", Content: []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)}
	result := agg.ScanContext(scanCtx)

	require.Equal(t, scan.Block, result.Verdict)
	require.GreaterOrEqual(t, result.RiskScore, 80)
}

func TestCleanFileAllowsWithLowScore(t *testing.T) {
	db := signatures.New()
	agg := New([]engines.Engine{
		engines.NewSignatureEngine(db),
		engines.NewScriptEngine(),
		engines.NewMLEngine(),
		engines.NewHeuristicEngine(engines.DefaultHeuristicConfig()),
	}, cache.New(time.Minute, 100), DefaultThresholds(), nil)

	scanCtx := &scan.Context{Path: "clean.txt", Content: []byte("This is a clean file.")}
	result := agg.ScanContext(scanCtx)

	require.Equal(t, scan.Allow, result.Verdict)
	require.Less(t, result.RiskScore, 50)
}

func TestMissingFileDoesNotCrashAndAllows(t *testing.T) {
	db := signatures.New()
	agg := New([]engines.Engine{engines.NewSignatureEngine(db)}, cache.New(time.Minute, 100), DefaultThresholds(), nil)

	missing := filepath.Join(t.TempDir(), "gone")
	result := agg.Scan(context.Background(), missing)

	require.Equal(t, scan.Allow, result.Verdict)
	require.Len(t, result.Engines, 1)
	require.Equal(t, scan.Error, result.Engines[0].Verdict)
	require.Equal(t, 0, result.Engines[0].Score)
	require.NotEmpty(t, result.Engines[0].Reasons)
}

func TestErrorEngineExcludedFromAggregation(t *testing.T) {
	errEngine := &fakeEngine{name: "broken", weight: 1.0, result: scan.EngineResult{Engine: "broken", Verdict: scan.Error}}
	cleanEngine := &fakeEngine{name: "clean", weight: 1.0, result: scan.EngineResult{Engine: "clean", Score: 0, Confidence: 1, Verdict: scan.Clean}}

	result := combine("x", []EngineWeight{
		{Engine: errEngine, Weight: errEngine.weight},
		{Engine: cleanEngine, Weight: cleanEngine.weight},
	}, []scan.EngineResult{errEngine.result, cleanEngine.result}, DefaultThresholds())

	require.Equal(t, 0, result.RiskScore)
	require.Equal(t, scan.Allow, result.Verdict)
}

func TestHighConfidenceMaliciousForcesBlock(t *testing.T) {
	lowScoreButConfidentMalicious := scan.EngineResult{Engine: "x", Score: 10, Confidence: 0.95, Verdict: scan.Malicious}

	result := combine("x", []EngineWeight{{Engine: &fakeEngine{name: "x", weight: 1.0}, Weight: 1.0}},
		[]scan.EngineResult{lowScoreButConfidentMalicious}, DefaultThresholds())

	require.Equal(t, scan.Block, result.Verdict)
}

func TestTwoMaliciousEnginesForceQuarantine(t *testing.T) {
	a := scan.EngineResult{Engine: "a", Score: 30, Confidence: 0.5, Verdict: scan.Malicious}
	b := scan.EngineResult{Engine: "b", Score: 30, Confidence: 0.5, Verdict: scan.Malicious}

	result := combine("x", []EngineWeight{
		{Engine: &fakeEngine{name: "a"}, Weight: 1.0},
		{Engine: &fakeEngine{name: "b"}, Weight: 1.0},
	}, []scan.EngineResult{a, b}, DefaultThresholds())

	require.Equal(t, scan.Quarantine, result.Verdict)
}

func joinReasons(reasons []string) string {
	out := ""
	for _, r := range reasons {
		out += r + " "
	}
	return out
}
