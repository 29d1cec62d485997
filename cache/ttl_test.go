package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type definitionStub struct {
	Text        string
	Fingerprint string
}

func TestTTL_GetExistingValue_StructType(t *testing.T) {
	c := New[definitionStub]("definitions", time.Minute, DefaultCleanupInterval, nil)
	want := definitionStub{Text: "fields: []", Fingerprint: "abc"}
	c.Set("PP10", want)

	got, ok := c.Get("PP10")
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestTTL_GetMissingValue(t *testing.T) {
	c := New[string]("definitions", time.Minute, DefaultCleanupInterval, nil)

	got, ok := c.Get("PP10")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestTTL_GetWrongType(t *testing.T) {
	c := New[string]("definitions", time.Minute, DefaultCleanupInterval, nil)
	c.cache.Set("PP10", 123, time.Minute)

	got, ok := c.Get("PP10")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestTTL_EntryExpires(t *testing.T) {
	c := New[string]("definitions", 20*time.Millisecond, DefaultCleanupInterval, nil)
	c.Set("PP10", "v1")

	_, ok := c.Get("PP10")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := c.Get("PP10")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestTTL_SetWithTTLOverridesDefault(t *testing.T) {
	c := New[string]("definitions", 10*time.Millisecond, DefaultCleanupInterval, nil)
	c.SetWithTTL("base", "v1", time.Hour)

	time.Sleep(30 * time.Millisecond)
	got, ok := c.Get("base")
	require.True(t, ok)
	require.Equal(t, "v1", got)
	require.Equal(t, 10*time.Millisecond, c.TTL())
}

func TestTTL_Delete(t *testing.T) {
	c := New[string]("sessions", time.Minute, DefaultCleanupInterval, nil)
	c.Set("a", "1")
	c.Delete("a")

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}
