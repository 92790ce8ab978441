package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

type recordingSink struct {
	mu     sync.Mutex
	events []fsevent.Event
}

func (s *recordingSink) Add(path string, kind fsevent.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fsevent.Event{Path: path, Kind: kind})
}

func (s *recordingSink) snapshot() []fsevent.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fsevent.Event, len(s.events))
	copy(out, s.events)
	return out
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelDisabled, os.Stderr)
}

func TestStartStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	sink := &recordingSink{}
	m := New([]string{root}, nil, sink, testLogger())

	require.NoError(t, m.Start())
	require.NoError(t, m.Start())
	m.Stop()
	m.Stop()
}

func TestWriteUnderWatchedRootProducesEvent(t *testing.T) {
	root := t.TempDir()
	sink := &recordingSink{}
	m := New([]string{root}, nil, sink, testLogger())
	require.NoError(t, m.Start())
	defer m.Stop()

	path := filepath.Join(root, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) > 0
	}, time.Second, 10*time.Millisecond)

	require.Greater(t, m.Stats.EventsSeen(), int64(0))
}

func TestExceptionPathIsFiltered(t *testing.T) {
	root := t.TempDir()
	excluded := filepath.Join(root, "excluded")
	require.NoError(t, os.Mkdir(excluded, 0700))

	sink := &recordingSink{}
	m := New([]string{root}, []string{excluded}, sink, testLogger())
	require.NoError(t, m.Start())
	defer m.Stop()

	path := filepath.Join(excluded, "quiet.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	time.Sleep(200 * time.Millisecond)
	for _, event := range sink.snapshot() {
		require.NotEqual(t, path, event.Path)
	}
}

func TestExcludedReportsAncestorMatch(t *testing.T) {
	root := t.TempDir()
	excluded := filepath.Join(root, "excluded")
	m := New(nil, []string{excluded}, &recordingSink{}, testLogger())

	require.True(t, m.excluded(filepath.Join(excluded, "a", "b.txt")))
	require.True(t, m.excluded(excluded))
	require.False(t, m.excluded(filepath.Join(root, "other.txt")))
}

func TestTranslateMapsOperations(t *testing.T) {
	kind, ok := translate(fsnotify.Write)
	require.True(t, ok)
	require.Equal(t, fsevent.Modified, kind)

	kind, ok = translate(fsnotify.Remove)
	require.True(t, ok)
	require.Equal(t, fsevent.Deleted, kind)

	kind, ok = translate(fsnotify.Rename)
	require.True(t, ok)
	require.Equal(t, fsevent.Renamed, kind)

	kind, ok = translate(fsnotify.Create)
	require.True(t, ok)
	require.Equal(t, fsevent.Created, kind)
}

func TestStatisticsUptimeZeroBeforeStart(t *testing.T) {
	m := New(nil, nil, &recordingSink{}, testLogger())
	require.Equal(t, time.Duration(0), m.Stats.Uptime())
}

func TestStatisticsUptimeAfterStart(t *testing.T) {
	root := t.TempDir()
	m := New([]string{root}, nil, &recordingSink{}, testLogger())
	require.NoError(t, m.Start())
	defer m.Stop()

	time.Sleep(5 * time.Millisecond)
	require.Greater(t, m.Stats.Uptime(), time.Duration(0))
}
