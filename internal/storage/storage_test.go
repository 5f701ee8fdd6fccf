package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"plain", "https://image.example.com", "games/gz/1-a.png", "https://image.example.com/games/gz/1-a.png"},
		{"trailing slash on base", "https://image.example.com/", "1-a.png", "https://image.example.com/1-a.png"},
		{"leading slash on key", "https://image.example.com", "/1-a.png", "https://image.example.com/1-a.png"},
		{"absolute key", "https://image.example.com", "https://cdn.example.org/x.png", "https://cdn.example.org/x.png"},
		{"empty key", "https://image.example.com", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinURL(tt.base, tt.key))
		})
	}
}

func TestKeyFromURL(t *testing.T) {
	base := "https://image.example.com/"

	key, ok := KeyFromURL(base, "https://image.example.com/games/gz/1700000000000-cover.webp")
	require.True(t, ok)
	assert.Equal(t, "games/gz/1700000000000-cover.webp", key)

	key, ok = KeyFromURL(base, "https://image.example.com/common/default/1-my%20file.png")
	require.True(t, ok)
	assert.Equal(t, "common/default/1-my file.png", key)

	_, ok = KeyFromURL(base, "https://other.example.com/games/gz/1-a.png")
	assert.False(t, ok)

	_, ok = KeyFromURL(base, "https://image.example.com/")
	assert.False(t, ok)
}

func TestPublicURLRoundTrip(t *testing.T) {
	m := NewMemory("https://image.example.com")

	for _, key := range []string{
		"1700000000000-cover.webp",
		"games/gz/1700000000000-cover.webp",
		"common/default/1700000000000-封面 1.png",
	} {
		got, ok := KeyFromURL("https://image.example.com", m.PublicURL(key))
		require.True(t, ok, key)
		assert.Equal(t, key, got)
	}
}

func TestMemoryUpload(t *testing.T) {
	m := NewMemory("http://localhost/uploads")
	ctx := context.Background()

	require.NoError(t, m.Ready(ctx))
	require.NoError(t, m.Upload(ctx, "a/b/1-x.txt", strings.NewReader("hello"), 5, "text/plain"))
	require.NoError(t, m.Upload(ctx, "a/b/2-x.txt", strings.NewReader("hello"), -1, "text/plain"))

	obj, ok := m.Get("a/b/1-x.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), obj.Data)
	assert.Equal(t, "text/plain", obj.ContentType)
	assert.Equal(t, []string{"a/b/1-x.txt", "a/b/2-x.txt"}, m.Keys())
	assert.Equal(t, 2, m.Puts())
}

func TestMemoryUploadSizeMismatch(t *testing.T) {
	m := NewMemory("")

	err := m.Upload(context.Background(), "k", strings.NewReader("abc"), 10, "text/plain")
	require.Error(t, err)
	assert.Zero(t, m.Puts())
	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestMemoryUploadCanceled(t *testing.T) {
	m := NewMemory("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Upload(ctx, "k", strings.NewReader("abc"), 3, "text/plain")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.Keys())
}

func TestPublicReadPolicy(t *testing.T) {
	var policy struct {
		Statement []struct {
			Action   string
			Resource string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("media")), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, "s3:GetObject", policy.Statement[0].Action)
	assert.Equal(t, "arn:aws:s3:::media/*", policy.Statement[0].Resource)
}
