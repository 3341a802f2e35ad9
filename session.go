package claudepipe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/wagiedev/claude-pipeline-go/internal/message"
	"github.com/wagiedev/claude-pipeline-go/internal/response"
	"github.com/wagiedev/claude-pipeline-go/internal/session"
)

// Re-exported session stores.
type (
	SessionStore       = session.Store
	MemorySessionStore = session.MemoryStore
	SQLiteSessionStore = session.SQLiteStore
)

// NewMemorySessionStore creates an in-process session store.
func NewMemorySessionStore() *MemorySessionStore {
	return session.NewMemoryStore()
}

// OpenSQLiteSessionStore opens a SQLite-backed session store at dsn.
func OpenSQLiteSessionStore(dsn string) (*SQLiteSessionStore, error) {
	return session.OpenSQLite(dsn)
}

// Session continues one agent conversation across queries.
//
// The first query whose response carries a session id fixes the session's
// id; every later query resumes it, overriding any WithSessionID option.
// Until an id is known, queries run as independent one-shot invocations.
type Session struct {
	opts []Option
	log  *slog.Logger

	store session.Store
	key   string

	mu     sync.Mutex
	loaded bool
	id     string
}

// NewSession creates a session. opts apply to every query; per-query
// options are applied after them.
func NewSession(opts ...Option) *Session {
	o := applyOptions(opts)

	return &Session{
		opts:  slices.Clone(opts),
		log:   o.logger().With("component", "session"),
		store: o.SessionStore,
		key:   o.SessionKey,
	}
}

// ID returns the captured session id, or "" before one is known.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.id
}

// Query sends prompt within the session.
func (s *Session) Query(ctx context.Context, prompt string, opts ...Option) *Response {
	o := applyOptions(append(slices.Clone(s.opts), opts...))

	if err := s.load(ctx); err != nil {
		return response.Failed(s.log, err)
	}

	if id := s.ID(); id != "" {
		o.SessionID = id
	}

	return run(ctx, prompt, o, response.WithOnDrained(func(msgs []message.Message) {
		s.capture(context.WithoutCancel(ctx), msgs)
	}))
}

// load reads a previously saved id from the store, once.
func (s *Session) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded || s.store == nil {
		return nil
	}

	id, err := s.store.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load session %q: %w", s.key, err)
	}

	s.loaded = true

	if id != "" && s.id == "" {
		s.id = id
		s.log.Debug("Resuming stored session", "key", s.key, "session_id", id)
	}

	return nil
}

// capture records the first session id seen in msgs. Later ids are ignored.
func (s *Session) capture(ctx context.Context, msgs []message.Message) {
	var found string

	for _, msg := range msgs {
		if id := message.SessionIDOf(msg); id != "" {
			found = id

			break
		}
	}

	if found == "" {
		return
	}

	s.mu.Lock()

	if s.id != "" {
		s.mu.Unlock()

		return
	}

	s.id = found
	s.mu.Unlock()

	s.log.Info("Session captured", "session_id", found)

	if s.store == nil {
		return
	}

	if err := s.store.Save(ctx, s.key, found); err != nil {
		s.log.Warn("Failed to save session", "key", s.key, "session_id", found, "error", err)
	}
}
