package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/config"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/ipc"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

const eicarPattern = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelDisabled, os.Stderr)
}

func testConfig(t *testing.T) (config.Config, string) {
	stateDir := t.TempDir()
	cfg := config.Default()
	cfg.EnableRealTimeProtection = false
	cfg.QuarantinePath = filepath.Join(stateDir, "quarantine")
	cfg.WorkerPoolSize = 2
	return cfg, stateDir
}

func TestBuildWiresEveryComponent(t *testing.T) {
	cfg, stateDir := testConfig(t)

	a, err := Build(cfg, testLogger(), stateDir)
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.shutdown()

	require.NotNil(t, a.aggregator)
	require.NotNil(t, a.executor)
	require.NotNil(t, a.controller)
	require.NotNil(t, a.ipcServer)
}

func TestBuildFailsWhenLockAlreadyHeld(t *testing.T) {
	cfg, stateDir := testConfig(t)

	first, err := Build(cfg, testLogger(), stateDir)
	require.NoError(t, err)
	defer first.shutdown()

	_, err = Build(cfg, testLogger(), stateDir)
	require.Error(t, err)
}

func TestLoadOrCreateQuarantineKeyPersistsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarantine.key")

	first, err := loadOrCreateQuarantineKey(path)
	require.NoError(t, err)

	second, err := loadOrCreateQuarantineKey(path)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestLoadOrCreateQuarantineKeyRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarantine.key")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0600))

	_, err := loadOrCreateQuarantineKey(path)
	require.Error(t, err)
}

func TestRunServesIPCAndStopsOnCancel(t *testing.T) {
	cfg, stateDir := testConfig(t)

	a, err := Build(cfg, testLogger(), stateDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Give Serve a moment to start accepting before issuing a request.
	require.Eventually(t, func() bool {
		client, dialErr := ipc.Dial(a.socketPath)
		if dialErr != nil {
			return false
		}
		defer client.Close()
		return true
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestHandleRealtimeEventQuarantinesMatchingContent(t *testing.T) {
	cfg, stateDir := testConfig(t)

	a, err := Build(cfg, testLogger(), stateDir)
	require.NoError(t, err)
	defer a.shutdown()

	path := filepath.Join(t.TempDir(), "eicar.txt")
	require.NoError(t, os.WriteFile(path, []byte(eicarPattern), 0644))

	event := fsevent.Event{Path: path, Kind: fsevent.Created, Timestamp: time.Now()}
	a.handleRealtimeEvent(context.Background(), event)

	require.Equal(t, int64(1), a.monitor.Stats.ThreatsBlocked())
	require.NoFileExists(t, path)
}
