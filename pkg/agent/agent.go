// Package agent wires every core component into a single running instance.
// Build is the explicit construction function DESIGN NOTES §9 calls for in
// place of singletons: every dependency is created once here and passed
// into the component that needs it, the way mutagen's cmd/mutagen/daemon
// run.go wires its forwarding/synchronization managers and gRPC server
// before serving a single connection.
package agent

import (
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/action"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/aggregator"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/cache"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/coalescer"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/config"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/daemon"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/engines"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/eventqueue"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/ipc"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/monitor"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/must"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/quarantine"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scanjob"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/signatures"
)

// quarantineKeySize is the ChaCha20-Poly1305 key size, duplicated here
// (rather than importing chacha20poly1305 just for a constant) since this
// package only needs the raw byte count.
const quarantineKeySize = 32

// eventWorkerIdleDelay bounds how often a real-time worker polls the event
// queue when it finds nothing pending, since both of the queue's ends are
// non-blocking per spec.md §4.7.
const eventWorkerIdleDelay = 50 * time.Millisecond

// Agent is a fully wired running instance of the core pipeline.
type Agent struct {
	cfg    config.Config
	logger *logging.Logger

	lock *daemon.Lock

	signatureDB *signatures.Database
	scanCache   *cache.Cache
	aggregator  *aggregator.Aggregator

	quarantineStore *quarantine.Store
	allowlist       *action.MapAllowlist
	executor        *action.Executor

	queue      *eventqueue.Queue
	coalescer  *coalescer.Coalescer
	monitor    *monitor.Monitor
	controller *scanjob.Controller

	listener   io.Closer
	ipcServer  *ipc.Server
	socketPath string

	settingsMu sync.Mutex
}

// Build constructs every component and wires them together without
// starting anything that runs in the background; call Run to start serving.
func Build(cfg config.Config, logger *logging.Logger, stateDir string) (*Agent, error) {
	lock, err := daemon.AcquireLock(stateDir, logger.Sublogger("daemon"))
	if err != nil {
		return nil, err
	}

	signatureDB, err := loadSignatureDB(cfg.SignatureDBPath)
	if err != nil {
		must.Unlock(flockCloser{lock}, logger)
		return nil, err
	}

	engineSet := []engines.Engine{
		engines.NewSignatureEngine(signatureDB),
		engines.NewHeuristicEngine(engines.DefaultHeuristicConfig()),
		engines.NewMLEngine(),
		engines.NewScriptEngine(),
		engines.NewReputationEngine(nil),
	}
	scanCache := cache.New(time.Duration(cfg.ScanCacheTTLS)*time.Second, cfg.ScanCacheCapacity)
	agg := aggregator.New(engineSet, scanCache, aggregator.DefaultThresholds(), logger.Sublogger("aggregator"))

	key, err := loadOrCreateQuarantineKey(filepath.Join(stateDir, "quarantine.key"))
	if err != nil {
		must.Unlock(flockCloser{lock}, logger)
		return nil, err
	}
	store, err := quarantine.Open(cfg.QuarantinePath, key, logger.Sublogger("quarantine"))
	if err != nil {
		must.Unlock(flockCloser{lock}, logger)
		return nil, err
	}

	allowlist := action.NewMapAllowlist()
	for _, hash := range cfg.SHA256Allowlist {
		allowlist.Add(hash)
	}
	executor := action.New(cfg.ActionPolicy(), allowlist, store)

	queue := eventqueue.New(10000)
	window := time.Duration(cfg.CoalesceWindowMS) * time.Millisecond
	coal := coalescer.New(window, queue)
	realtimeMonitor := monitor.New(cfg.WatchedRoots, cfg.Exceptions, coal, logger.Sublogger("monitor"))

	controller := scanjob.New(agg, executor,
		scanjob.WithWorkers(cfg.WorkerPoolSize),
		scanjob.WithMaxFileSizeMB(cfg.MaxFileSizeMB),
	)

	socketPath, err := daemon.SocketPath(stateDir)
	if err != nil {
		must.Unlock(flockCloser{lock}, logger)
		return nil, err
	}
	listener, err := ipc.NewUnixListener(socketPath)
	if err != nil {
		must.Unlock(flockCloser{lock}, logger)
		return nil, err
	}
	server := ipc.NewServer(listener, logger.Sublogger("ipc"))
	server.SetIdentityChecker(ipc.NewPeerCredentialIdentityChecker(0))

	a := &Agent{
		cfg:             cfg,
		logger:          logger,
		lock:            lock,
		signatureDB:     signatureDB,
		scanCache:       scanCache,
		aggregator:      agg,
		quarantineStore: store,
		allowlist:       allowlist,
		executor:        executor,
		queue:           queue,
		coalescer:       coal,
		monitor:         realtimeMonitor,
		controller:      controller,
		listener:        listener,
		ipcServer:       server,
		socketPath:      socketPath,
	}
	a.registerHandlers()
	return a, nil
}

// flockCloser adapts daemon.Lock's Release method to the interface
// must.Unlock expects.
type flockCloser struct{ lock *daemon.Lock }

func (f flockCloser) Unlock() error { return f.lock.Release() }

func loadSignatureDB(path string) (*signatures.Database, error) {
	if path == "" {
		return signatures.New(), nil
	}
	return signatures.Load(path)
}

// loadOrCreateQuarantineKey reads the quarantine's at-rest encryption key
// from path, generating and persisting a new random one on first run. Key
// management beyond "one random key per host install" is out of scope
// (spec.md §1 treats key/secret management as an external collaborator).
func loadOrCreateQuarantineKey(path string) ([quarantineKeySize]byte, error) {
	var key [quarantineKeySize]byte

	if existing, err := os.ReadFile(path); err == nil {
		if len(existing) != quarantineKeySize {
			return key, errors.Errorf("quarantine key file %q has unexpected length %d", path, len(existing))
		}
		copy(key[:], existing)
		return key, nil
	} else if !os.IsNotExist(err) {
		return key, errors.Wrapf(err, "unable to read quarantine key %q", path)
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, errors.Wrap(err, "unable to generate quarantine key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return key, errors.Wrapf(err, "unable to create directory for quarantine key %q", path)
	}
	if err := os.WriteFile(path, key[:], 0600); err != nil {
		return key, errors.Wrapf(err, "unable to persist quarantine key %q", path)
	}
	return key, nil
}

// Run starts the real-time pipeline (if enabled) and the event worker pool,
// begins serving IPC connections, and blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	defer a.shutdown()

	if a.cfg.EnableRealTimeProtection {
		if err := a.monitor.Start(); err != nil {
			return errors.Wrap(err, "unable to start real-time monitor")
		}
	}

	workers := a.cfg.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runEventWorker(ctx)
		}()
	}

	serveErr := a.ipcServer.Serve(ctx)

	<-ctx.Done()
	wg.Wait()
	return serveErr
}

// runEventWorker drains coalesced file events and routes each through the
// aggregator and action executor, broadcasting the outcome over IPC. This
// is the real-time leg of the data flow in spec.md §2
// (`C9 -> C8 -> C7 -> C6 -> C11 -> C12`); scanjob.Controller serves the
// separate on-demand leg.
func (a *Agent) runEventWorker(ctx context.Context) {
	ticker := time.NewTicker(eventWorkerIdleDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, ok := a.queue.TryDequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}
		a.handleRealtimeEvent(ctx, event)
	}
}

func (a *Agent) handleRealtimeEvent(ctx context.Context, event fsevent.Event) {
	if event.Kind == fsevent.Deleted {
		return
	}
	info, err := os.Stat(event.Path)
	if err != nil || info.Size() > a.cfg.MaxFileSizeMB*1024*1024 && a.cfg.MaxFileSizeMB > 0 {
		return
	}

	scanCtx, result := a.aggregator.ScanWithContext(ctx, event.Path)
	if result.Verdict != scan.Allow {
		a.ipcServer.Broadcast(ipc.Event{
			EventType: ipc.EventThreatDetected,
			Payload: map[string]interface{}{
				"path":    event.Path,
				"verdict": string(result.Verdict),
				"score":   result.RiskScore,
			},
			Timestamp: time.Now(),
		})
	}

	outcome := a.executor.Handle(ctx, scanCtx, result)
	if outcome.ActionTaken {
		switch outcome.Outcome {
		case "Quarantined":
			a.monitor.Stats.RecordFileQuarantined()
			a.monitor.Stats.RecordThreatBlocked()
		case "Deleted":
			a.monitor.Stats.RecordThreatBlocked()
		}
		a.ipcServer.Broadcast(ipc.Event{
			EventType: ipc.EventThreatActionApplied,
			Payload:   outcome,
			Timestamp: time.Now(),
		})
	} else if outcome.RecommendedAction != "" {
		a.ipcServer.Broadcast(ipc.Event{
			EventType: ipc.EventThreatActionRequired,
			Payload:   outcome,
			Timestamp: time.Now(),
		})
	}
}

func (a *Agent) shutdown() {
	a.monitor.Stop()
	a.coalescer.Stop()
	must.Close(a.listener, a.logger)
	must.Unlock(flockCloser{a.lock}, a.logger)
}
