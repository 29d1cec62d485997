package definitions

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Dosada05/league-registration/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	Source
	mu    sync.Mutex
	reads map[string]int
	fail  map[string]error
}

func newCountingSource(fsys fs.FS) *countingSource {
	return &countingSource{Source: NewFSSource(fsys), reads: map[string]int{}, fail: map[string]error{}}
}

func (s *countingSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.reads[name]++
	err := s.fail[name]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Source.ReadFile(ctx, name)
}

func (s *countingSource) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[name]
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"profiles/base.yaml":            {Data: []byte("fields: []\n")},
		"profiles/player/PP10.yaml":     {Data: []byte("fields:\n  - name: gradYear\n")},
		"profiles/player/PP2.yml":       {Data: []byte("fields: []\n")},
		"profiles/player/notes.txt":     {Data: []byte("ignore")},
		"profiles/player/pp99.yaml":     {Data: []byte("lowercase is outside the convention")},
		"profiles/club/CAC04.yaml":      {Data: []byte("fields: []\n")},
		"profiles/club/cac_07_fall.yml": {Data: []byte("fields:\n  - name: clubName\n")},
		"templates/PP10.html":           {Data: []byte(`<input name="gradYear">`)},
	}
}

func TestFetcher_FetchDefinition(t *testing.T) {
	f := NewFetcher(NewFSSource(testFS()), FetcherConfig{}, nil)

	def, err := f.FetchDefinition(context.Background(), "PP10")
	require.NoError(t, err)
	assert.Equal(t, "profiles/player/PP10.yaml", def.Path)
	assert.Contains(t, def.Text, "gradYear")
	assert.Len(t, def.Fingerprint, 12)
	assert.Equal(t, Fingerprint([]byte(def.Text)), def.Fingerprint)
}

func TestFetcher_FetchDefinition_YmlExtension(t *testing.T) {
	f := NewFetcher(NewFSSource(testFS()), FetcherConfig{}, nil)

	def, err := f.FetchDefinition(context.Background(), "PP2")
	require.NoError(t, err)
	assert.Equal(t, "profiles/player/PP2.yml", def.Path)
}

func TestFetcher_FetchDefinition_ClubLooseConvention(t *testing.T) {
	f := NewFetcher(NewFSSource(testFS()), FetcherConfig{}, nil)

	def, err := f.FetchDefinition(context.Background(), "CAC07")
	require.NoError(t, err)
	assert.Equal(t, "profiles/club/cac_07_fall.yml", def.Path)
	assert.Contains(t, def.Text, "clubName")
}

func TestFetcher_FetchDefinition_NotFound(t *testing.T) {
	f := NewFetcher(NewFSSource(testFS()), FetcherConfig{}, nil)

	_, err := f.FetchDefinition(context.Background(), "PP77")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFetcher_DefinitionIsCachedWithinTTL(t *testing.T) {
	src := newCountingSource(testFS())
	f := NewFetcher(src, FetcherConfig{DefinitionTTL: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := f.FetchDefinition(context.Background(), "PP10")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.count("profiles/player/PP10.yaml"))
}

func TestFetcher_DefinitionExpiresAfterShortTTL(t *testing.T) {
	src := newCountingSource(testFS())
	f := NewFetcher(src, FetcherConfig{DefinitionTTL: 10 * time.Millisecond, BaseTTL: time.Hour}, nil)

	_, err := f.FetchDefinition(context.Background(), "PP10")
	require.NoError(t, err)
	_, err = f.FetchBaseDefinition(context.Background())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = f.FetchDefinition(context.Background(), "PP10")
	require.NoError(t, err)
	_, err = f.FetchBaseDefinition(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, src.count("profiles/player/PP10.yaml"), "short tier re-reads")
	assert.Equal(t, 1, src.count(BaseDefinitionPath), "long tier still cached")
}

func TestFetcher_FetchTemplate_BestEffort(t *testing.T) {
	src := newCountingSource(testFS())
	src.fail["templates/CAC04.html"] = errors.New("disk on fire")
	f := NewFetcher(src, FetcherConfig{}, nil)

	text, ok := f.FetchTemplate(context.Background(), "PP10")
	assert.True(t, ok)
	assert.Contains(t, text, "gradYear")

	_, ok = f.FetchTemplate(context.Background(), "PP2")
	assert.False(t, ok, "missing template degrades to none")

	_, ok = f.FetchTemplate(context.Background(), "CAC04")
	assert.False(t, ok, "read error degrades to none")
}

func TestFetcher_ListKnownProfileTypes(t *testing.T) {
	f := NewFetcher(NewFSSource(testFS()), FetcherConfig{}, nil)

	got, err := f.ListKnownProfileTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ProfileType{"PP2", "PP10", "CAC04", "CAC07"}, got)
}

func TestFetcher_ListKnownProfileTypes_MissingDirectories(t *testing.T) {
	f := NewFetcher(NewFSSource(fstest.MapFS{}), FetcherConfig{}, nil)

	got, err := f.ListKnownProfileTypes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint([]byte("fields: []"))
	b := Fingerprint([]byte("fields: []"))
	c := Fingerprint([]byte("fields: [x]"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
