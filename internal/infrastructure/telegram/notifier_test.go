package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDigestPostsForm(t *testing.T) {
	var (
		mu    sync.Mutex
		path  string
		forms []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		path = r.URL.Path
		forms = append(forms, r.PostForm.Get("chat_id")+"|"+r.PostForm.Get("text"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier("token", "42")
	n.baseURL = server.URL
	n.client = server.Client()

	require.NoError(t, n.PublishDigest(context.Background(), "New recommendations"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, []string{"42|New recommendations"}, forms)
}

func TestPublishDigestReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier("token", "42")
	n.baseURL = server.URL
	n.client = server.Client()

	err := n.PublishDigest(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPublishDigestMisconfigured(t *testing.T) {
	n := NewNotifier("", "42")
	assert.False(t, n.Enabled())
	assert.Error(t, n.PublishDigest(context.Background(), "hello"))
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("a", 6) + "\n\n" + strings.Repeat("b", 6)
	chunks := splitMessage(text, 10)
	assert.Equal(t, []string{"aaaaaa\n\n", "bbbbbb"}, chunks)

	chunks = splitMessage(strings.Repeat("x", 25), 10)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 5)

	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
}
