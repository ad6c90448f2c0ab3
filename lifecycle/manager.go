// Package lifecycle guarantees that exactly one relay and one
// transport handler exist per process, no matter how many times the
// entry point is invoked or how many first requests race.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"

	"github.com/dgraph-io/badger/v4"
)

type Options struct {
	SocketPath           string
	BadgerFilepath       string
	InMemory             bool // storage without a directory, for tests
	HistoryLimit         int
	MaxContentLength     int
	BufferSize           int
	ConnectionBufferSize int
	RestartInterval      time.Duration
	GCInterval           time.Duration
	MetricInterval       time.Duration
}

// NewSocketHandler builds the transport handler for a started relay.
// Injected by the caller so this package does not depend on the wire
// layer (and tests can observe the relay directly).
type NewSocketHandler func(ctx context.Context, log *slog.Logger, relay contract.IRelay, connectionBufferSize int) http.Handler

// Manager owns the single relay instance and routes traffic: requests
// on the socket path reach the relay's transport, everything else is
// handed to the page collaborator verbatim. Construction is lazy and
// happens at most once; a failed start is cached and stays fatal.
type Manager struct {
	mu        sync.Mutex
	log       *slog.Logger
	opts      Options
	page      http.Handler
	newSocket NewSocketHandler

	started  bool
	startErr error
	cancel   context.CancelFunc
	db       *badger.DB
	relay    *runtime.Relay
	socket   http.Handler
	sup      *workers.Supervisor
}

func NewManager(log *slog.Logger, opts Options, page http.Handler, newSocket NewSocketHandler) *Manager {
	return &Manager{log: log, opts: opts, page: page, newSocket: newSocket}
}

// EnsureStarted constructs the storage, the relay runtime, and the
// transport handler on first call and returns the existing relay on
// every later one. Safe under concurrent first calls; only one
// instance is ever built. Handlers are registered exactly once, so
// repeated invocation cannot cause duplicate broadcasts.
func (m *Manager) EnsureStarted() (contract.IRelay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return nil, m.startErr
	}
	if m.started {
		return m.relay, nil
	}

	if err := m.start(); err != nil {
		// No recovery path: a relay that could not start stays down
		// until the process is replaced.
		m.startErr = fmt.Errorf("relay startup: %w", err)
		m.log.Error("Relay startup failed", "error", err)
		return nil, m.startErr
	}
	m.started = true
	m.log.Info("Relay started", "socket_path", m.opts.SocketPath)
	return m.relay, nil
}

func (m *Manager) start() error {
	badgerOpts := badger.DefaultOptions(m.opts.BadgerFilepath).WithLoggingLevel(badger.ERROR)
	if m.opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	registry := runtime.NewRegistry()
	repository := repositories.NewMessageRepository(db, m.log)
	sup := workers.NewSupervisor(m.log, m.opts.RestartInterval)

	relay := runtime.NewRelay(m.log, registry, repository, sup,
		m.opts.HistoryLimit, m.opts.MaxContentLength, m.opts.BufferSize)
	relay.Start(ctx)

	sup.Add(workers.NewReporterWorker(registry, m.opts.MetricInterval, m.log))
	if !m.opts.InMemory {
		sup.Add(workers.NewBadgerGCWorker(db, m.opts.GCInterval, m.log))
	}
	go sup.Run(ctx)

	m.db = db
	m.cancel = cancel
	m.relay = relay
	m.sup = sup
	m.socket = m.newSocket(ctx, m.log, relay, m.opts.ConnectionBufferSize)
	return nil
}

// ServeHTTP is the single entry point. The socket path lazily starts
// the relay; every other request bypasses the core untouched.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.isSocketPath(r.URL.Path) {
		if _, err := m.EnsureStarted(); err != nil {
			http.Error(w, "relay unavailable", http.StatusServiceUnavailable)
			return
		}
		m.socketHandler().ServeHTTP(w, r)
		return
	}
	m.page.ServeHTTP(w, r)
}

func (m *Manager) isSocketPath(path string) bool {
	return path == m.opts.SocketPath || strings.HasPrefix(path, m.opts.SocketPath+"/")
}

func (m *Manager) socketHandler() http.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socket
}

// Close tears the instance down at process shutdown: stop workers,
// then release the database. The manager is not restartable.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.cancel()
	m.sup.Stop()
	m.log.Info("Closing store...")
	return m.db.Close()
}
