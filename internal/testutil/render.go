package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// Rendered is one template call seen by a RenderRecorder.
type Rendered struct {
	Name string
	Data any
}

// RenderRecorder stands in for the template engine in handler tests. It
// records each call and writes the template name as the response body.
type RenderRecorder struct {
	mu       sync.Mutex
	pages    []Rendered
	snippets []Rendered
}

// Page records a full-page render.
func (rr *RenderRecorder) Page(w http.ResponseWriter, _ *http.Request, name string, data any) {
	rr.mu.Lock()
	rr.pages = append(rr.pages, Rendered{Name: name, Data: data})
	rr.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "page:%s", name)
}

// Snippet records a partial render.
func (rr *RenderRecorder) Snippet(w http.ResponseWriter, name string, data any) {
	rr.mu.Lock()
	rr.snippets = append(rr.snippets, Rendered{Name: name, Data: data})
	rr.mu.Unlock()
	fmt.Fprintf(w, "snippet:%s", name)
}

// Pages returns the recorded page renders.
func (rr *RenderRecorder) Pages() []Rendered {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return append([]Rendered(nil), rr.pages...)
}

// Snippets returns the recorded snippet renders.
func (rr *RenderRecorder) Snippets() []Rendered {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return append([]Rendered(nil), rr.snippets...)
}

// LastPage returns the most recent page render, failing the test if none.
func (rr *RenderRecorder) LastPage(t *testing.T) Rendered {
	t.Helper()
	p := rr.Pages()
	if len(p) == 0 {
		t.Fatal("no page rendered")
	}
	return p[len(p)-1]
}

// WaitSnippets blocks until at least n snippets were rendered.
func (rr *RenderRecorder) WaitSnippets(t *testing.T, n int) []Rendered {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := rr.Snippets(); len(s) >= n {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d snippets (have %d)", n, len(rr.Snippets()))
	return nil
}

// StreamRecorder is a ResponseWriter and Flusher that can be read while a
// streaming handler is still writing to it.
type StreamRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
	Code   int
}

// NewStreamRecorder returns an empty recorder.
func NewStreamRecorder() *StreamRecorder {
	return &StreamRecorder{header: make(http.Header), Code: http.StatusOK}
}

func (s *StreamRecorder) Header() http.Header { return s.header }

func (s *StreamRecorder) WriteHeader(code int) {
	s.mu.Lock()
	s.Code = code
	s.mu.Unlock()
}

func (s *StreamRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body.Write(p)
}

// Flush implements http.Flusher.
func (s *StreamRecorder) Flush() {}

// Body returns everything written so far.
func (s *StreamRecorder) Body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body.String()
}
