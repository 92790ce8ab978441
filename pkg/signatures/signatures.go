// Package signatures implements C3: an in-memory database of known-bad
// hashes and content patterns, loadable from a flat text file.
package signatures

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Algorithm identifies the hash algorithm a SignatureRecord was computed
// with.
type Algorithm string

const (
	// SHA256 identifies the SHA-256 algorithm.
	SHA256 Algorithm = "SHA-256"
	// MD5 identifies the MD5 algorithm.
	MD5 Algorithm = "MD5"
)

// Record is a single known-bad signature.
type Record struct {
	// Name is the human-readable threat name.
	Name string
	// Hash is the lowercase hex digest.
	Hash string
	// Algorithm is the digest algorithm used to compute Hash.
	Algorithm Algorithm
	// Severity is the configured severity, 0-100.
	Severity int
	// Pattern is an optional content substring that also identifies this
	// threat, used when pre-computed hashes aren't available (e.g. EICAR).
	Pattern string
}

// key uniquely identifies a record by (algorithm, hash).
type key struct {
	algorithm Algorithm
	hash      string
}

// eicarHash is the well-known SHA-256 digest of the EICAR test string.
// Seeding it ensures the database always has at least one entry, so tests
// that rely on EICAR detection terminate even with no signature file on
// disk.
const eicarHash = "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f"

// eicarPattern is the standard EICAR test string, used as a content-pattern
// fallback when no pre-computed hash is available.
const eicarPattern = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

// Database is an in-memory, concurrency-safe signature lookup table.
type Database struct {
	mu      sync.RWMutex
	byKey   map[key]Record
	pattern []Record
}

// New creates an empty Database seeded with the built-in EICAR signature.
func New() *Database {
	db := &Database{byKey: make(map[key]Record)}
	db.seedEICAR()
	return db
}

func (d *Database) seedEICAR() {
	record := Record{
		Name:      "EICAR-Test-File",
		Hash:      eicarHash,
		Algorithm: SHA256,
		Severity:  100,
		Pattern:   eicarPattern,
	}
	d.byKey[key{SHA256, eicarHash}] = record
	d.pattern = append(d.pattern, record)
}

// Load populates a Database from the on-disk signature file at path. The
// format is UTF-8 text, '#'-prefixed comments, and lines of the form
// HEX_HASH|THREAT_NAME|SEVERITY_INT. Malformed lines are skipped. If the
// file is absent, Load returns a Database seeded with only the EICAR
// sentinel and no error; if opening or reading it fails, Load returns the
// EICAR sentinel plus any records read so far, together with the error. The
// returned database is therefore never empty.
func Load(path string) (*Database, error) {
	db := New()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return db, errors.Wrapf(err, "unable to open signature database %q", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		record, ok := parseLine(line)
		if !ok {
			continue
		}
		db.add(record)
	}
	if err := scanner.Err(); err != nil {
		return db, errors.Wrapf(err, "unable to read signature database %q", path)
	}

	return db, nil
}

func parseLine(line string) (Record, bool) {
	fields := strings.SplitN(line, "|", 3)
	if len(fields) != 3 {
		return Record{}, false
	}
	hash := strings.ToLower(strings.TrimSpace(fields[0]))
	name := strings.TrimSpace(fields[1])
	severity, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Record{}, false
	}
	algorithm := SHA256
	if len(hash) == 32 {
		algorithm = MD5
	} else if len(hash) != 64 {
		return Record{}, false
	}
	return Record{Name: name, Hash: hash, Algorithm: algorithm, Severity: severity}, true
}

func (d *Database) add(record Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byKey[key{record.Algorithm, record.Hash}] = record
	if record.Pattern != "" {
		d.pattern = append(d.pattern, record)
	}
}

// Lookup returns the first record matching sha256 or md5, in that order. It
// is safe under concurrent scans.
func (d *Database) Lookup(sha256, md5 string) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if sha256 != "" {
		if record, ok := d.byKey[key{SHA256, strings.ToLower(sha256)}]; ok {
			return record, true
		}
	}
	if md5 != "" {
		if record, ok := d.byKey[key{MD5, strings.ToLower(md5)}]; ok {
			return record, true
		}
	}
	return Record{}, false
}

// LookupContent scans content for any registered content pattern and returns
// the first match. This is the fallback path used when no pre-computed
// hashes are available (e.g. an in-memory EICAR scan).
func (d *Database) LookupContent(content []byte) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	text := string(content)
	for _, record := range d.pattern {
		if strings.Contains(text, record.Pattern) {
			return record, true
		}
	}
	return Record{}, false
}
