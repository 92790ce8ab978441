package engines

import (
	"fmt"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// mlSizeCeiling bounds how much of a file the ML engine reads for feature
// extraction.
const mlSizeCeiling = 20 * 1024 * 1024

// scoreIntercept is subtracted from the raw weighted sum before clamping, so
// that the baseline entropy/size signal present in ordinary text and binary
// files doesn't by itself push the score above zero. Only a genuinely
// elevated combination of features (high entropy plus PE/import indicators)
// clears it.
const scoreIntercept = 25.0

// weights are the linear model's per-feature coefficients. This is a
// deliberately simple stand-in for the real model contract: the feature
// vector and its ordering are the real interface (spec.md §4.4); model
// internals are explicitly out of scope for this repo.
var weights = [featureVectorLength]float64{
	// histogram buckets: high weight toward the top of the byte range
	// (0xE0-0xFF), characteristic of packed/encrypted payloads.
	0, 0, 0, 0, 0, 5, 10, 20,
	// entropy
	40,
	// size bucket
	-5,
	// PE indicator
	10,
	// dangerous APIs
	50,
	// suspicious DLLs
	20,
	0, 0, 0,
}

// MLEngine scores files using a fixed-length feature vector and a linear
// model over it.
type MLEngine struct{}

// NewMLEngine creates a machine-learning scoring engine.
func NewMLEngine() *MLEngine { return &MLEngine{} }

// Name implements Engine.
func (e *MLEngine) Name() string { return "ml" }

// DefaultWeight implements Engine.
func (e *MLEngine) DefaultWeight() float64 { return 0.8 }

// Scan implements Engine.
func (e *MLEngine) Scan(ctx *scan.Context) scan.EngineResult {
	content := ctx.Content
	if content == nil {
		data, err := readBounded(ctx.Path, mlSizeCeiling)
		if err != nil {
			return errored(e.Name(), fmt.Sprintf("unable to read content for feature extraction: %v", err))
		}
		content = data
	}
	if len(content) == 0 {
		return clean(e.Name())
	}

	features := featureVector(content)

	var sum float64
	for i, w := range weights {
		sum += w * features[i]
	}
	sum -= scoreIntercept

	score := int(sum)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if score == 0 {
		return clean(e.Name())
	}

	verdict := scan.Suspicious
	confidence := 0.4 + float64(score)/200.0
	if score >= 75 {
		verdict = scan.Malicious
		confidence = 0.6 + float64(score)/250.0
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	return scan.EngineResult{
		Engine:     e.Name(),
		Score:      score,
		Confidence: confidence,
		Verdict:    verdict,
		Reasons:    []string{fmt.Sprintf("model score %d derived from content features (entropy, PE indicators, import patterns)", score)},
	}
}
