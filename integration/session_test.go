//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	claudepipe "github.com/wagiedev/claude-pipeline-go"
)

func TestSession_RemembersEarlierTurn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	s := claudepipe.NewSession(claudepipe.WithModel("haiku"), claudepipe.WithMaxTurns(1))

	if err := s.Query(ctx, "Remember the code word PAPAYA. Reply 'noted'.").Err(); err != nil {
		skipIfCLINotInstalled(t, err)
		t.Fatalf("first turn failed: %v", err)
	}

	first := s.ID()
	require.NotEmpty(t, first)

	text, err := s.Query(ctx, "What was the code word?").Text()
	require.NoError(t, err)
	require.Contains(t, strings.ToUpper(text), "PAPAYA")
	require.Equal(t, first, s.ID(), "the session id never changes once captured")
}

func TestSession_PersistedAcrossSessions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	store, err := claudepipe.OpenSQLiteSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	opts := []claudepipe.Option{
		claudepipe.WithModel("haiku"),
		claudepipe.WithMaxTurns(1),
		claudepipe.WithSessionStore(store, "integration"),
	}

	err = claudepipe.WithSession(ctx, func(s *claudepipe.Session) error {
		return s.Query(ctx, "Remember the number 42. Reply 'noted'.").Err()
	}, opts...)
	if err != nil {
		skipIfCLINotInstalled(t, err)
		t.Fatalf("first session failed: %v", err)
	}

	err = claudepipe.WithSession(ctx, func(s *claudepipe.Session) error {
		require.NotEmpty(t, s.ID())

		text, err := s.Query(ctx, "Which number did I ask you to remember?").Text()
		if err != nil {
			return err
		}

		require.True(t, contains42(text), "unexpected answer: %q", text)

		return nil
	}, opts...)
	require.NoError(t, err)
}
