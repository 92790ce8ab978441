// Package quarantine implements C10: the on-disk quarantine store. A
// quarantined file is first moved atomically out of harm's way (with
// retries for transient "file in use" failures, see TryAtomicMove,
// grounded on the cross-device rename handling in mutagen's
// pkg/filesystem/atomic_posix.go), then sealed at rest with
// ChaCha20-Poly1305 (golang.org/x/crypto/chacha20poly1305) so that a
// directory listing or accidental open of the quarantine directory never
// reveals live malware bytes.
package quarantine

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/hashing"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/must"
)

// pendingDir and itemsDir are the quarantine store's two subdirectories:
// pendingDir holds files that have been moved out of their original
// location but not yet sealed; itemsDir holds sealed, encrypted payloads.
const (
	pendingDir = "pending"
	itemsDir   = "items"
	journal    = "metadata.jsonl"
)

// Entry is a single quarantine record, persisted as one line of the
// metadata journal.
type Entry struct {
	ID            string    `json:"id"`
	OriginalPath  string    `json:"original_path"`
	SHA256        string    `json:"sha256"`
	Size          int64     `json:"size"`
	ThreatName    string    `json:"threat_name"`
	QuarantinedAt time.Time `json:"quarantined_at"`
	sealedPath    string    // derived, not persisted directly beyond ID
}

// Store manages the pending/ and items/ subdirectories and the metadata
// journal that indexes them. All metadata mutations are serialized by mu,
// matching the single-writer discipline mutagen's session manager uses for
// its own on-disk state.
type Store struct {
	root   string
	key    [chacha20poly1305.KeySize]byte
	logger *logging.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// Open opens (creating if necessary) a quarantine store rooted at root,
// sealing payloads with key. The key must be stable across restarts or
// previously sealed entries become unrecoverable; pkg/agent reads it from a
// key file in the state directory, generating that file on first run.
func Open(root string, key [chacha20poly1305.KeySize]byte, logger *logging.Logger) (*Store, error) {
	for _, sub := range []string{pendingDir, itemsDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0700); err != nil {
			return nil, errors.Wrapf(err, "unable to create quarantine directory %q", sub)
		}
	}

	store := &Store{
		root:    root,
		key:     key,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if err := store.loadJournal(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) loadJournal() error {
	path := filepath.Join(s.root, journal)
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "unable to open quarantine journal")
	}
	defer must.Close(file, s.logger)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			s.logger.Warnf("skipping corrupt quarantine journal line: %v", err)
			continue
		}
		s.entries[entry.ID] = entry
	}
	return scanner.Err()
}

func (s *Store) appendJournal(entry Entry) error {
	path := filepath.Join(s.root, journal)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "unable to open quarantine journal for append")
	}
	defer must.Close(file, s.logger)

	encoded, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "unable to encode quarantine entry")
	}
	encoded = append(encoded, '\n')
	if _, err := file.Write(encoded); err != nil {
		return errors.Wrap(err, "unable to append quarantine journal entry")
	}
	return nil
}

// TryAtomicMove moves src into the pending directory, retrying with
// exponential backoff after every failed attempt (whether the failure is
// transient, such as the file briefly held open by another process, or
// persistent), and falling back to a copy+remove when
// the pending directory lives on a different device. It returns the path
// the file now lives at inside pending/.
func TryAtomicMove(src, pendingRoot string, maxRetries int, initialDelay, maxDelay time.Duration) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", errors.Wrapf(err, "unable to move %q into quarantine: source does not exist", src)
	}

	id := uuid.Must(uuid.NewV7()).String()
	dest := filepath.Join(pendingRoot, id+filepath.Ext(src))

	delay := initialDelay
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		if err := os.Rename(src, dest); err == nil {
			return dest, nil
		} else if isCrossDevice(err) {
			if copyErr := copyThenRemove(src, dest); copyErr == nil {
				return dest, nil
			} else {
				lastErr = copyErr
			}
		} else {
			lastErr = err
		}
	}

	return "", errors.Wrapf(lastErr, "unable to move %q into quarantine after %d attempts", src, maxRetries+1)
}

func isCrossDevice(err error) bool {
	linkErr, ok := err.(*os.LinkError)
	return ok && errors.Is(linkErr.Err, errCrossDevice)
}

func copyThenRemove(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "unable to open source file for copy")
	}
	defer must.Close(in, nil)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "unable to create quarantine destination")
	}

	if _, err := io.Copy(out, in); err != nil {
		must.Close(out, nil)
		must.OSRemove(dest, nil)
		return errors.Wrap(err, "unable to copy file into quarantine")
	}
	if err := out.Close(); err != nil {
		must.OSRemove(dest, nil)
		return errors.Wrap(err, "unable to finalize quarantine copy")
	}
	if err := os.Remove(src); err != nil {
		return errors.Wrap(err, "unable to remove original after quarantine copy")
	}
	return nil
}

// QuarantineMovedFile seals a file already sitting in pending/ (typically
// placed there by TryAtomicMove), writes the encrypted payload into
// items/, records its metadata, and removes the pending copy. On any
// failure partway through, the partially written sealed output is
// removed so items/ never holds truncated payloads.
func (s *Store) QuarantineMovedFile(ctx context.Context, pendingPath, originalPath, threatName string) (Entry, error) {
	sha256Hex, err := hashing.SHA256(ctx, pendingPath)
	if err != nil {
		return Entry{}, errors.Wrap(err, "unable to hash pending quarantine file")
	}

	info, err := os.Stat(pendingPath)
	if err != nil {
		return Entry{}, errors.Wrap(err, "unable to stat pending quarantine file")
	}

	id := uuid.Must(uuid.NewV7()).String()
	sealedPath := filepath.Join(s.root, itemsDir, id+".sealed")

	if err := s.seal(pendingPath, sealedPath); err != nil {
		must.OSRemove(sealedPath, s.logger)
		return Entry{}, err
	}

	entry := Entry{
		ID:            id,
		OriginalPath:  originalPath,
		SHA256:        sha256Hex,
		Size:          info.Size(),
		ThreatName:    threatName,
		QuarantinedAt: time.Now(),
		sealedPath:    sealedPath,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendJournal(entry); err != nil {
		must.OSRemove(sealedPath, s.logger)
		return Entry{}, err
	}
	s.entries[entry.ID] = entry

	must.OSRemove(pendingPath, s.logger)

	return entry, nil
}

// QuarantineFile moves src into the pending directory and seals it in one
// step, the common case used by the real-time action executor.
func (s *Store) QuarantineFile(ctx context.Context, src, threatName string, maxRetries int, initialDelay, maxDelay time.Duration) (Entry, error) {
	pendingPath, err := TryAtomicMove(src, filepath.Join(s.root, pendingDir), maxRetries, initialDelay, maxDelay)
	if err != nil {
		return Entry{}, err
	}
	return s.QuarantineMovedFile(ctx, pendingPath, src, threatName)
}

func (s *Store) seal(plainPath, sealedPath string) error {
	plain, err := os.Open(plainPath)
	if err != nil {
		return errors.Wrap(err, "unable to open file to seal")
	}
	defer must.Close(plain, s.logger)

	content, err := io.ReadAll(plain)
	if err != nil {
		return errors.Wrap(err, "unable to read file to seal")
	}

	aead, err := chacha20poly1305.New(s.key[:])
	if err != nil {
		return errors.Wrap(err, "unable to construct cipher")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "unable to generate nonce")
	}

	sealed := aead.Seal(nonce, nonce, content, nil)

	if err := os.WriteFile(sealedPath, sealed, 0600); err != nil {
		return errors.Wrap(err, "unable to write sealed quarantine payload")
	}
	return nil
}

func (s *Store) open(sealedPath string) ([]byte, error) {
	sealed, err := os.ReadFile(sealedPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read sealed quarantine payload")
	}

	aead, err := chacha20poly1305.New(s.key[:])
	if err != nil {
		return nil, errors.Wrap(err, "unable to construct cipher")
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed quarantine payload is truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decrypt quarantine payload")
	}
	return plain, nil
}

// Get returns the entry for id, if present.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// List returns a snapshot of all quarantine entries.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out
}

// Restore decrypts and writes the quarantined file for id to destination,
// verifying its content hash still matches what was recorded at
// quarantine time, and refusing to restore to an unsafe destination.
func (s *Store) Restore(id, destination string) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return errors.Errorf("no quarantine entry with id %q", id)
	}

	if !IsRestoreTargetSafe(destination) {
		return errors.Errorf("refusing to restore to unsafe destination %q", destination)
	}

	sealedPath := filepath.Join(s.root, itemsDir, entry.ID+".sealed")
	plain, err := s.open(sealedPath)
	if err != nil {
		return err
	}

	sum := sha256Hex(plain)
	if sum != entry.SHA256 {
		return errors.New("restored content hash does not match quarantine record; refusing to restore")
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0700); err != nil {
		return errors.Wrap(err, "unable to create restore destination directory")
	}
	if err := os.WriteFile(destination, plain, 0600); err != nil {
		return errors.Wrap(err, "unable to write restored file")
	}
	return nil
}

// Delete removes a quarantine entry and its sealed payload. Deleting an
// id that does not exist is not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil
	}

	sealedPath := filepath.Join(s.root, itemsDir, entry.ID+".sealed")
	if err := os.Remove(sealedPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to remove sealed quarantine payload")
	}

	delete(s.entries, id)
	return s.rewriteJournalLocked()
}

func (s *Store) rewriteJournalLocked() error {
	path := filepath.Join(s.root, journal)
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "unable to create replacement quarantine journal")
	}
	writer := bufio.NewWriter(file)
	for _, entry := range s.entries {
		encoded, err := json.Marshal(entry)
		if err != nil {
			must.Close(file, s.logger)
			must.OSRemove(tmp, s.logger)
			return errors.Wrap(err, "unable to encode quarantine entry")
		}
		if _, err := writer.Write(append(encoded, '\n')); err != nil {
			must.Close(file, s.logger)
			must.OSRemove(tmp, s.logger)
			return errors.Wrap(err, "unable to write replacement quarantine journal")
		}
	}
	if err := writer.Flush(); err != nil {
		must.Close(file, s.logger)
		must.OSRemove(tmp, s.logger)
		return errors.Wrap(err, "unable to flush replacement quarantine journal")
	}
	if err := file.Close(); err != nil {
		must.OSRemove(tmp, s.logger)
		return errors.Wrap(err, "unable to close replacement quarantine journal")
	}
	return os.Rename(tmp, path)
}

func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// IsRestoreTargetSafe reports whether destination is an acceptable
// restore target. It rejects restoring into the OS temporary directory or
// under a short list of sensitive system directories; this is a narrow,
// deliberate policy rather than an exhaustive OS-specific consult (see
// DESIGN.md).
func IsRestoreTargetSafe(destination string) bool {
	clean := filepath.Clean(destination)

	if within(clean, filepath.Clean(os.TempDir())) {
		return false
	}

	// The filesystem root is refused only as an exact target: every path is
	// beneath it, so it cannot take part in the ancestor checks below.
	if clean == "/" {
		return false
	}

	for _, forbidden := range []string{"/etc", "/bin", "/sbin", "/usr/bin", "/usr/sbin", "/boot", "/sys", "/proc", "/dev"} {
		if within(clean, forbidden) {
			return false
		}
	}
	return true
}

func within(path, ancestor string) bool {
	if path == ancestor {
		return true
	}
	rel, err := filepath.Rel(ancestor, path)
	return err == nil && rel != ".." && !filepathHasDotDotPrefix(rel)
}

func filepathHasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}
