package claudepipe

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// sessionCLI answers every invocation with session id "S1".
func sessionCLI() *fakeCLI {
	return &fakeCLI{script: func(int) *fakeTransport {
		return &fakeTransport{records: []map[string]any{
			assistantRecord("S1", "turn"),
			resultRecord("S1", "turn", 0.001),
		}}
	}}
}

func TestSession_ContinuesConversation(t *testing.T) {
	t.Parallel()

	cli := sessionCLI()
	s := NewSession(WithTransport(cli.factory))
	require.Empty(t, s.ID())

	first := s.Query(t.Context(), "Remember 7")
	require.NoError(t, first.Err())
	require.Equal(t, "S1", s.ID())

	second := s.Query(t.Context(), "Which number?", WithSessionID("caller-provided"))
	require.NoError(t, second.Err())

	runs := cli.invocations()
	require.Len(t, runs, 2)
	require.Empty(t, runs[0].options.SessionID, "first invocation starts fresh")
	require.Equal(t, "S1", runs[1].options.SessionID, "captured id overrides the caller's")
}

func TestSession_IDIsCapturedOnce(t *testing.T) {
	t.Parallel()

	cli := &fakeCLI{script: func(n int) *fakeTransport {
		id := []string{"S1", "S2", "S3"}[n]

		return &fakeTransport{records: []map[string]any{resultRecord(id, "ok", 0)}}
	}}

	s := NewSession(WithTransport(cli.factory))

	for range 3 {
		require.NoError(t, s.Query(t.Context(), "turn").Err())
		require.Equal(t, "S1", s.ID())
	}

	for _, run := range cli.invocations()[1:] {
		require.Equal(t, "S1", run.options.SessionID)
	}
}

func TestSession_StatelessWithoutID(t *testing.T) {
	t.Parallel()

	cli := replying(assistantRecord("", "no session"))
	s := NewSession(WithTransport(cli.factory))

	for range 2 {
		require.NoError(t, s.Query(t.Context(), "hi").Err())
	}

	require.Empty(t, s.ID())

	for _, run := range cli.invocations() {
		require.Empty(t, run.options.SessionID)
	}
}

func TestSession_FailedQueryDoesNotCapture(t *testing.T) {
	t.Parallel()

	cli := &fakeCLI{script: func(n int) *fakeTransport {
		if n == 0 {
			return &fakeTransport{
				records: []map[string]any{assistantRecord("BAD", "partial")},
				tail:    &ProcessError{ExitCode: 1},
			}
		}

		return &fakeTransport{records: []map[string]any{resultRecord("S1", "ok", 0)}}
	}}

	s := NewSession(WithTransport(cli.factory))

	require.Error(t, s.Query(t.Context(), "one").Err())
	require.Empty(t, s.ID())

	require.NoError(t, s.Query(t.Context(), "two").Err())
	require.Equal(t, "S1", s.ID())
}

func TestSession_Persistence(t *testing.T) {
	t.Parallel()

	store, err := OpenSQLiteSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cli := sessionCLI()

	first := NewSession(WithTransport(cli.factory), WithSessionStore(store, "review"))
	require.NoError(t, first.Query(t.Context(), "start").Err())

	id, err := store.Load(t.Context(), "review")
	require.NoError(t, err)
	require.Equal(t, "S1", id)

	// A new session with the same key resumes immediately.
	second := NewSession(WithTransport(cli.factory), WithSessionStore(store, "review"))
	require.NoError(t, second.Query(t.Context(), "continue").Err())
	require.Equal(t, "S1", cli.invocations()[1].options.SessionID)
}

type brokenStore struct{ err error }

func (b brokenStore) Load(context.Context, string) (string, error) { return "", b.err }
func (b brokenStore) Save(context.Context, string, string) error   { return b.err }

func TestWithSession(t *testing.T) {
	t.Parallel()

	t.Run("runs fn with a preloaded session", func(t *testing.T) {
		store := NewMemorySessionStore()
		require.NoError(t, store.Save(t.Context(), "k", "S0"))

		cli := sessionCLI()

		err := WithSession(t.Context(), func(s *Session) error {
			require.Equal(t, "S0", s.ID())

			return s.Query(t.Context(), "hi").Err()
		}, WithTransport(cli.factory), WithSessionStore(store, "k"))
		require.NoError(t, err)
		require.Equal(t, "S0", cli.invocations()[0].options.SessionID)
	})

	t.Run("store failure", func(t *testing.T) {
		boom := stderrors.New("disk gone")

		err := WithSession(t.Context(), func(*Session) error {
			t.Fatal("fn must not run")

			return nil
		}, WithSessionStore(brokenStore{err: boom}, "k"))
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := WithSession(ctx, func(*Session) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("fn error is returned", func(t *testing.T) {
		boom := stderrors.New("fn failed")

		err := WithSession(t.Context(), func(*Session) error { return boom })
		require.ErrorIs(t, err, boom)
	})
}
