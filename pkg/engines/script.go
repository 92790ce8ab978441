package engines

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// scriptSizeCeiling is the recommended size above which script content is
// not screened, to bound worst-case scan latency.
const scriptSizeCeiling = 5 * 1024 * 1024

// scriptExtensions is the set of extensions the screener operates on.
var scriptExtensions = map[string]bool{
	".ps1": true,
	".vbs": true,
	".js":  true,
	".bat": true,
	".cmd": true,
}

// suspiciousScriptTokens are content fragments commonly seen in malicious
// scripts. This is a default, tunable list (see DESIGN.md).
var suspiciousScriptTokens = []string{
	"Invoke-Expression",
	"DownloadString",
	"FromBase64String",
	"WScript.Shell",
	"Hidden",
	"-EncodedCommand",
	"Shell.Application",
}

// ScriptEngine screens script files for suspicious content patterns.
type ScriptEngine struct{}

// NewScriptEngine creates a script-content screening engine.
func NewScriptEngine() *ScriptEngine { return &ScriptEngine{} }

// Name implements Engine.
func (e *ScriptEngine) Name() string { return "script" }

// DefaultWeight implements Engine.
func (e *ScriptEngine) DefaultWeight() float64 { return 0.5 }

// Scan implements Engine.
func (e *ScriptEngine) Scan(ctx *scan.Context) scan.EngineResult {
	ext := strings.ToLower(filepath.Ext(ctx.Path))
	if !scriptExtensions[ext] {
		return clean(e.Name())
	}

	if ctx.Size > scriptSizeCeiling {
		return scan.EngineResult{
			Engine:     e.Name(),
			Score:      0,
			Confidence: 1.0,
			Verdict:    scan.Clean,
			Reasons:    []string{fmt.Sprintf("skipped: file exceeds script size limit (%d bytes)", scriptSizeCeiling)},
		}
	}

	content := ctx.Content
	if content == nil {
		data, err := readBounded(ctx.Path, scriptSizeCeiling)
		if err != nil {
			return errored(e.Name(), fmt.Sprintf("unable to read script content: %v", err))
		}
		content = data
	}

	var hits []string
	for _, token := range suspiciousScriptTokens {
		if strings.Contains(string(content), token) {
			hits = append(hits, token)
		}
	}

	if len(hits) == 0 {
		return clean(e.Name())
	}

	score := 30 + 15*len(hits)
	if score > 90 {
		score = 90
	}
	confidence := 0.5 + 0.1*float64(len(hits))
	if confidence > 0.85 {
		confidence = 0.85
	}
	verdict := scan.Suspicious
	if len(hits) >= 3 {
		verdict = scan.Malicious
	}

	return scan.EngineResult{
		Engine:     e.Name(),
		Score:      score,
		Confidence: confidence,
		Verdict:    verdict,
		Reasons:    []string{fmt.Sprintf("suspicious script tokens: %s", strings.Join(hits, ", "))},
	}
}
