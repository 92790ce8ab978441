package coalescer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/eventqueue"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
)

func TestRepeatedEventsForSamePathCoalesceToOne(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0600))

	queue := eventqueue.New(10)
	c := New(30*time.Millisecond, queue)
	defer c.Stop()

	c.Add(path, fsevent.Created)
	c.Add(path, fsevent.Modified)
	c.Add(path, fsevent.Modified)

	require.Eventually(t, func() bool {
		return queue.Len() == 1
	}, time.Second, 5*time.Millisecond)

	event, ok := queue.TryDequeue()
	require.True(t, ok)
	require.Equal(t, fsevent.Modified, event.Kind)

	_, ok = queue.TryDequeue()
	require.False(t, ok)
}

func TestDistinctPathsEachProduceOneEvent(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0600))
		paths = append(paths, p)
	}

	queue := eventqueue.New(10)
	c := New(30*time.Millisecond, queue)
	defer c.Stop()

	for _, p := range paths {
		c.Add(p, fsevent.Created)
	}

	require.Eventually(t, func() bool {
		return queue.Len() == len(paths)
	}, time.Second, 5*time.Millisecond)
}

func TestVanishedFileDroppedAtFlush(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "ghost.txt")
	// Never created on disk.

	queue := eventqueue.New(10)
	c := New(20*time.Millisecond, queue)
	defer c.Stop()

	c.Add(path, fsevent.Created)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, queue.Len())
}

func TestRenameSurfacesAsCreated(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "renamed.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	queue := eventqueue.New(10)
	c := New(20*time.Millisecond, queue)
	defer c.Stop()

	c.Add(path, fsevent.Renamed)

	require.Eventually(t, func() bool {
		return queue.Len() == 1
	}, time.Second, 5*time.Millisecond)

	event, _ := queue.TryDequeue()
	require.Equal(t, fsevent.Created, event.Kind)
}

func TestClearDropsPending(t *testing.T) {
	queue := eventqueue.New(10)
	c := New(time.Hour, queue)
	defer c.Stop()

	c.Add("/tmp/a", fsevent.Created)
	require.Equal(t, 1, c.PendingCount())
	c.Clear()
	require.Equal(t, 0, c.PendingCount())
}
