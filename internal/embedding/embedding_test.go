package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/slidenotes/internal/retry"
)

func norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimension() != DefaultHashDimension {
		t.Errorf("expected default dimension %d, got %d", DefaultHashDimension, e.Dimension())
	}

	vecs, err := e.Embed(context.Background(), []string{"y=wx+b", "y=wx+b", "线性回归 梯度下降", ""})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 4 {
		t.Fatalf("expected 4 vectors, got %d", len(vecs))
	}
	for i, v := range vecs[:3] {
		if len(v) != DefaultHashDimension {
			t.Errorf("vector %d: expected length %d, got %d", i, DefaultHashDimension, len(v))
		}
		if n := norm(v); math.Abs(n-1) > 1e-5 {
			t.Errorf("vector %d: expected unit norm, got %f", i, n)
		}
	}
	if s := Dot(vecs[0], vecs[1]); math.Abs(s-1) > 1e-5 {
		t.Errorf("expected identical texts to have similarity 1, got %f", s)
	}
	if n := norm(vecs[3]); n != 0 {
		t.Errorf("expected empty text to give a zero vector, got norm %f", n)
	}
}

func TestHashEmbedder_SimilarTextsCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, _ := e.Embed(context.Background(), []string{
		"gradient descent update rule learning rate",
		"gradient descent update rule step size",
		"photosynthesis in plant cells",
	})
	near := Dot(vecs[0], vecs[1])
	far := Dot(vecs[0], vecs[2])
	if near <= far {
		t.Errorf("expected related texts closer: near=%f far=%f", near, far)
	}
}

func TestHashTokens_CJKBigrams(t *testing.T) {
	got := hashTokens("AB 梯度下")
	want := []string{"ab", "梯", "度", "梯度", "下", "度下"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func embeddingServer(t *testing.T, dims func(call int) int, failFirst int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if int(n) <= failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		var data []item
		// Reverse order to check that index is honoured.
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dims(int(n)))
			v[0] = float32(i + 1)
			data = append(data, item{Index: i, Embedding: v})
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIClient_EmbedBatchesAndOrder(t *testing.T) {
	srv, calls := embeddingServer(t, func(int) int { return 3 }, 1)
	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/", APIKey: "key", Model: "m", BatchSize: 2}, nil).
		WithRetryPolicy(retry.Policy{Attempts: 3, Backoff: func(int) time.Duration { return 0 }})

	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != 1 {
			t.Errorf("vector %d: expected normalised first component 1, got %f", i, v[0])
		}
	}
	// One 503 retried, then two batches.
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
	if c.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", c.Dimension())
	}
}

func TestOpenAIClient_InconsistentDimension(t *testing.T) {
	srv, _ := embeddingServer(t, func(call int) int { return 2 + call }, 0)
	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKey: "key", Model: "m"}, nil)

	if _, err := EmbedOne(context.Background(), c, "first"); err != nil {
		t.Fatalf("first embed: %v", err)
	}
	_, err := EmbedOne(context.Background(), c, "second")
	if !errors.Is(err, ErrInconsistentDimension) {
		t.Errorf("expected ErrInconsistentDimension, got %v", err)
	}
}

func TestOpenAIClient_PermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()
	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, nil)
	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestOpenAIClient_BlankInputsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			if in == "" {
				http.Error(w, `{"error":{"message":"input must not be empty"}}`, http.StatusBadRequest)
				return
			}
			data[i] = map[string]any{"index": i, "embedding": []float32{1, float32(i)}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()
	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, nil)

	texts := []string{"y=wx+b", "", "  \n", "loss"}
	vecs, err := c.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("expected blank slides to embed, got %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	if texts[1] != "" {
		t.Error("caller slice must not be modified")
	}
}

func TestLazy_BuildsOnce(t *testing.T) {
	var builds int32
	l := NewLazy(func() (Embedder, error) {
		atomic.AddInt32(&builds, 1)
		return NewHashEmbedder(8), nil
	})
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			if _, err := l.Get(); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if builds != 1 {
		t.Errorf("expected one construction, got %d", builds)
	}

	failing := NewLazy(func() (Embedder, error) { return nil, errors.New("no model") })
	if _, err := failing.Get(); err == nil {
		t.Error("expected construction error")
	}
	if _, err := failing.Get(); err == nil {
		t.Error("expected construction error to be sticky")
	}
}
