package engines

import (
	"fmt"
	"strings"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// HeuristicConfig tunes the heuristic engine's packer and import lists. The
// spec's Open Questions §9 flag these as tacit, tunable policy rather than a
// hard contract; DefaultHeuristicConfig is a best-effort reading, not a
// guarantee.
type HeuristicConfig struct {
	// PackerSectionNames are PE section names associated with common
	// packers/protectors.
	PackerSectionNames []string
	// DangerousImports are import names treated as suspicious when present
	// in unusual combination or volume.
	DangerousImports []string
	// SuspiciousStrings are content substrings treated as suspicious.
	SuspiciousStrings []string
}

// DefaultHeuristicConfig returns the engine's built-in default tuning.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		PackerSectionNames: []string{".upx0", ".upx1", ".aspack", ".petite", ".themida", ".vmp0", ".vmp1"},
		DangerousImports:   append([]string(nil), dangerousAPIs...),
		SuspiciousStrings:  []string{"cmd.exe /c", "powershell -enc", "rundll32", "regsvr32 /s"},
	}
}

// HeuristicEngine scores PE attributes and string patterns.
type HeuristicEngine struct {
	config HeuristicConfig
}

// NewHeuristicEngine creates a heuristic engine with the given
// configuration.
func NewHeuristicEngine(config HeuristicConfig) *HeuristicEngine {
	return &HeuristicEngine{config: config}
}

// Name implements Engine.
func (e *HeuristicEngine) Name() string { return "heuristic" }

// DefaultWeight implements Engine.
func (e *HeuristicEngine) DefaultWeight() float64 { return 0.7 }

// Scan implements Engine.
func (e *HeuristicEngine) Scan(ctx *scan.Context) scan.EngineResult {
	content := ctx.Content
	if content == nil {
		data, err := readBounded(ctx.Path, mlSizeCeiling)
		if err != nil {
			return errored(e.Name(), fmt.Sprintf("unable to read content for heuristic scan: %v", err))
		}
		content = data
	}
	if len(content) < 2 || content[0] != 'M' || content[1] != 'Z' {
		// Heuristics here are PE-attribute based; non-PE files have
		// nothing for this engine to say.
		return clean(e.Name())
	}

	text := string(content)
	var score int
	var reasons []string

	for _, packer := range e.config.PackerSectionNames {
		if strings.Contains(strings.ToLower(text), packer) {
			score += 25
			reasons = append(reasons, fmt.Sprintf("packer section name %q present", packer))
		}
	}

	var dangerousHits int
	for _, api := range e.config.DangerousImports {
		if strings.Contains(text, api) {
			dangerousHits++
		}
	}
	if dangerousHits >= 3 {
		score += 30
		reasons = append(reasons, fmt.Sprintf("%d dangerous API imports", dangerousHits))
	} else if dangerousHits > 0 {
		score += 10 * dangerousHits
		reasons = append(reasons, fmt.Sprintf("%d dangerous API imports", dangerousHits))
	}

	for _, pattern := range e.config.SuspiciousStrings {
		if strings.Contains(text, pattern) {
			score += 15
			reasons = append(reasons, fmt.Sprintf("suspicious string %q", pattern))
		}
	}

	if score == 0 {
		return clean(e.Name())
	}
	if score > 100 {
		score = 100
	}

	verdict := scan.Suspicious
	confidence := 0.4 + float64(score)/200.0
	if score >= 70 {
		verdict = scan.Malicious
		confidence = 0.7
	}

	return scan.EngineResult{
		Engine:     e.Name(),
		Score:      score,
		Confidence: confidence,
		Verdict:    verdict,
		Reasons:    reasons,
	}
}
