package youtube_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"media-ops/domain/dto"
	"media-ops/domain/model"
	"media-ops/domain/repository"
	youtubeclient "media-ops/infrastructure/clients/youtube"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeCreds hands out a fixed sequence of access tokens. Invalidate advances
// to the next one.
type fakeCreds struct {
	mu          sync.Mutex
	tokens      []string
	index       int
	invalidated int
}

func (f *fakeCreds) Token(ctx context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index
	if i >= len(f.tokens) {
		i = len(f.tokens) - 1
	}
	return &oauth2.Token{AccessToken: f.tokens[i]}, nil
}

func (f *fakeCreds) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	if f.index < len(f.tokens)-1 {
		f.index++
	}
}

func (f *fakeCreds) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

var _ repository.ICredentials = (*fakeCreds)(nil)

func testMetadata() *dto.UploadMetadata {
	return &dto.UploadMetadata{
		Title:       "Test Video",
		Description: "A test upload",
		Privacy:     "private",
	}
}

// uploadServer implements just enough of the resumable protocol for tests.
type uploadServer struct {
	mu       sync.Mutex
	received []byte
	total    int64
	finalID  string
	// onChunk can override the response for a given chunk offset;
	// returning false falls through to normal handling.
	onChunk   func(w http.ResponseWriter, offset int64, attempt int) bool
	attempts  map[int64]int
	deleted   bool
	initCalls int
}

func newUploadServer(total int64, finalID string) *uploadServer {
	return &uploadServer{total: total, finalID: finalID, attempts: map[int64]int{}}
}

func (s *uploadServer) handler(t *testing.T, baseURL *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			s.initCalls++
			assert.Contains(t, r.URL.RawQuery, "uploadType=resumable")
			assert.NotEmpty(t, r.Header.Get("X-Upload-Content-Length"))
			w.Header().Set("Location", *baseURL+"/session/abc")
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			s.deleted = true
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPut:
			var first, last, total int64
			_, err := fmt.Sscanf(r.Header.Get("Content-Range"), "bytes %d-%d/%d", &first, &last, &total)
			require.NoError(t, err)
			s.attempts[first]++
			if s.onChunk != nil && s.onChunk(w, first, s.attempts[first]) {
				return
			}
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.Equal(t, int(last-first+1), len(body))
			require.Equal(t, int(first), len(s.received), "chunks must arrive in order")
			s.received = append(s.received, body...)
			if last+1 == s.total {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"id":%q}`, s.finalID)
				return
			}
			w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", last))
			w.WriteHeader(308)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func newTestClient(srv *uploadServer, t *testing.T) (*youtubeclient.ResumableClient, *fakeCreds, *httptest.Server) {
	var baseURL string
	ts := httptest.NewServer(srv.handler(t, &baseURL))
	baseURL = ts.URL
	creds := &fakeCreds{tokens: []string{"token-1"}}
	client := youtubeclient.NewResumableClient(creds, &youtubeclient.Config{
		UploadURL:   ts.URL + "/upload",
		ChunkSize:   10,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})
	return client, creds, ts
}

func TestResumableClient_TransferRetriesTransientChunkFailure(t *testing.T) {
	payload := []byte(strings.Repeat("abcdefg", 5)) // 35 bytes, 4 chunks of 10
	srv := newUploadServer(int64(len(payload)), "yt-final")
	srv.onChunk = func(w http.ResponseWriter, offset int64, attempt int) bool {
		if offset == 20 && attempt == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return true
		}
		return false
	}
	client, _, ts := newTestClient(srv, t)
	defer ts.Close()

	var lastSent int64
	attempts := 0
	resultID, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload),
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
		OnProgress: func(bytesSent, bytesTotal int64) {
			assert.GreaterOrEqual(t, bytesSent, lastSent)
			lastSent = bytesSent
		},
		OnAttempt: func() { attempts++ },
	})
	require.NoError(t, err)
	assert.Equal(t, "yt-final", resultID)
	assert.Equal(t, payload, srv.received)
	assert.Equal(t, int64(len(payload)), lastSent)
	assert.Equal(t, 1, attempts)
}

func TestResumableClient_TransferExhaustsAttemptsOnPersistentFailure(t *testing.T) {
	payload := []byte(strings.Repeat("x", 15))
	srv := newUploadServer(int64(len(payload)), "yt-final")
	srv.onChunk = func(w http.ResponseWriter, offset int64, attempt int) bool {
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	}
	client, _, ts := newTestClient(srv, t)
	defer ts.Close()

	attempts := 0
	_, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload),
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
		OnAttempt: func() { attempts++ },
	})
	assert.ErrorIs(t, err, model.ErrTransient)
	// The chunk is retried up to the configured cap and no further.
	assert.Equal(t, 3, srv.attempts[0])
	assert.Equal(t, 2, attempts)
	assert.Empty(t, srv.received)
}

func TestResumableClient_TransferResumesFromOffset(t *testing.T) {
	payload := []byte(strings.Repeat("x", 25))
	srv := newUploadServer(int64(len(payload)), "yt-final")
	// The server already holds the first 10 bytes.
	srv.received = payload[:10]
	client, _, ts := newTestClient(srv, t)
	defer ts.Close()

	resultID, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload[10:]),
		Offset:    10,
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
	})
	require.NoError(t, err)
	assert.Equal(t, "yt-final", resultID)
	assert.Equal(t, payload, srv.received)
}

func TestResumableClient_TransferQuotaError(t *testing.T) {
	payload := []byte(strings.Repeat("x", 15))
	srv := newUploadServer(int64(len(payload)), "yt-final")
	srv.onChunk = func(w http.ResponseWriter, offset int64, attempt int) bool {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"errors":[{"domain":"youtube.quota","reason":"quotaExceeded","message":"The request cannot be completed because you have exceeded your quota."}],"code":403,"message":"Quota exceeded"}}`)
		return true
	}
	client, _, ts := newTestClient(srv, t)
	defer ts.Close()

	_, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload),
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
	})
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	// Quota failures are not retried.
	assert.Equal(t, 1, srv.attempts[0])
}

func TestResumableClient_TransferRefreshesOnUnauthorized(t *testing.T) {
	payload := []byte(strings.Repeat("x", 8))
	srv := newUploadServer(int64(len(payload)), "yt-final")
	srv.onChunk = func(w http.ResponseWriter, offset int64, attempt int) bool {
		return false
	}
	var baseURL string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		srv.handler(t, &baseURL)(w, r)
	}))
	baseURL = ts.URL
	defer ts.Close()

	creds := &fakeCreds{tokens: []string{"stale", "fresh"}}
	client := youtubeclient.NewResumableClient(creds, &youtubeclient.Config{
		UploadURL:   ts.URL + "/upload",
		ChunkSize:   10,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})

	resultID, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload),
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
	})
	require.NoError(t, err)
	assert.Equal(t, "yt-final", resultID)
	assert.Equal(t, 1, creds.invalidated)
}

func TestResumableClient_TransferCancelledAtChunkBoundary(t *testing.T) {
	payload := []byte(strings.Repeat("x", 30))
	srv := newUploadServer(int64(len(payload)), "yt-final")
	client, _, ts := newTestClient(srv, t)
	defer ts.Close()

	calls := 0
	_, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload),
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
		Cancelled: func() bool {
			calls++
			return calls > 1 // let the first chunk through, then cancel
		},
	})
	assert.ErrorIs(t, err, model.ErrCancelled)
	assert.True(t, srv.deleted, "abort should DELETE the session URL")
	assert.Equal(t, payload[:10], srv.received)
}

func TestResumableClient_TransferPermanentErrorNotRetried(t *testing.T) {
	payload := []byte(strings.Repeat("x", 5))
	srv := newUploadServer(int64(len(payload)), "yt-final")
	srv.onChunk = func(w http.ResponseWriter, offset int64, attempt int) bool {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"errors":[{"reason":"invalidRequest","message":"bad metadata"}],"code":400,"message":"bad metadata"}}`)
		return true
	}
	client, _, ts := newTestClient(srv, t)
	defer ts.Close()

	_, err := client.Transfer(context.Background(), &repository.TransferInput{
		SessionID: "s-1",
		Source:    bytes.NewReader(payload),
		Size:      int64(len(payload)),
		Metadata:  testMetadata(),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrTransient)
	assert.Equal(t, 1, srv.attempts[0])
}
