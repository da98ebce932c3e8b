package history

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history.json"), zap.NewNop())
}

func TestAppendRoundTrip(t *testing.T) {
	s := newTestStore(t)

	turns := []model.Turn{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi there"},
		{Role: model.RoleUser, Content: "what's on my calendar?"},
	}
	for _, turn := range turns {
		_, err := s.Append("conv-1", turn)
		require.NoError(t, err)
	}

	got, err := s.Get("conv-1")
	require.NoError(t, err)
	assert.Equal(t, turns, got)
}

func TestConversationsAreIndependent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append("a", model.Turn{Role: model.RoleUser, Content: "one"})
	require.NoError(t, err)
	_, err = s.Append("b", model.Turn{Role: model.RoleUser, Content: "two"})
	require.NoError(t, err)

	a, err := s.Get("a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "one", a[0].Content)

	b, err := s.Get("b")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "two", b[0].Content)
}

func TestGetUnknownConversation(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get("never-seen")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClearIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append("c", model.Turn{Role: model.RoleUser, Content: "x"})
	require.NoError(t, err)

	require.NoError(t, s.Clear("c"))
	require.NoError(t, s.Clear("c"))

	got, err := s.Get("c")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewStore(path, zap.NewNop())
	h, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	s := newTestStore(t)

	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Append("shared", model.Turn{Role: model.RoleUser, Content: "m"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get("shared")
	require.NoError(t, err)
	assert.Len(t, got, writers*perWriter)
}
