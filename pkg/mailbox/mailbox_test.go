package mailbox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the path-style requests the client issues.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><ListAllMyBucketsResult><Buckets></Buckets></ListAllMyBucketsResult>`)
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
		}
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
	case r.Method == http.MethodGet:
		body, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeS3) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Endpoint:  srv.URL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	return c, fake
}

func TestClient_ReadyAndEnsureBucket(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Ready(ctx))
	require.NoError(t, c.EnsureBucket(ctx, "user-registrations"))
	assert.True(t, fake.buckets["user-registrations"])

	// Second call finds the bucket.
	require.NoError(t, c.EnsureBucket(ctx, "user-registrations"))
}

func TestClient_PutGet(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	body := []byte(`{"userData":{"username":"alice"}}`)
	require.NoError(t, c.Put(ctx, "user-registrations", "user-1-1.json", body))
	assert.Equal(t, body, fake.objects["user-registrations/user-1-1.json"])

	got, err := c.Get(ctx, "user-registrations", "user-1-1.json")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = c.Get(ctx, "user-registrations", "missing.json")
	assert.Error(t, err)
}
