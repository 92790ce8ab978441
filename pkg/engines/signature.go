package engines

import (
	"fmt"
	"io"
	"os"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/signatures"
)

// database is the subset of *signatures.Database that the signature engine
// depends on, so tests can substitute a fake.
type database interface {
	Lookup(sha256, md5 string) (signatures.Record, bool)
	LookupContent(content []byte) (signatures.Record, bool)
}

// maxContentScanSize bounds how much of a file the signature engine will
// read into memory for a content-pattern fallback scan.
const maxContentScanSize = 10 * 1024 * 1024

// SignatureEngine matches file hashes (or, failing that, file content)
// against a database of known-bad signatures.
type SignatureEngine struct {
	db database
}

// NewSignatureEngine creates a signature engine backed by db.
func NewSignatureEngine(db database) *SignatureEngine {
	return &SignatureEngine{db: db}
}

// Name implements Engine.
func (e *SignatureEngine) Name() string { return "signature" }

// DefaultWeight implements Engine.
func (e *SignatureEngine) DefaultWeight() float64 { return 1.0 }

// Scan implements Engine.
func (e *SignatureEngine) Scan(ctx *scan.Context) scan.EngineResult {
	if record, ok := e.db.Lookup(ctx.SHA256, ctx.MD5); ok {
		return malicious(e.Name(), record.Name)
	}

	// Fall back to a content scan only when no pre-computed hashes were
	// supplied — this is what lets EICAR be detected from raw content
	// without the caller having hashed the file first.
	if ctx.SHA256 != "" || ctx.MD5 != "" {
		return clean(e.Name())
	}

	content := ctx.Content
	if content == nil {
		data, err := readBounded(ctx.Path, maxContentScanSize)
		if err != nil {
			return errored(e.Name(), fmt.Sprintf("unable to read content for signature scan: %v", err))
		}
		content = data
	}

	if record, ok := e.db.LookupContent(content); ok {
		return malicious(e.Name(), record.Name)
	}

	return clean(e.Name())
}

func malicious(engine, signatureName string) scan.EngineResult {
	return scan.EngineResult{
		Engine:     engine,
		Score:      100,
		Confidence: 1.0,
		Verdict:    scan.Malicious,
		Reasons:    []string{fmt.Sprintf("matched signature %q", signatureName)},
	}
}

// readBounded reads up to limit bytes of the file at path.
func readBounded(path string, limit int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size > limit {
		size = limit
	}

	buffer := make([]byte, size)
	if _, err := io.ReadFull(file, buffer); err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buffer, nil
}
