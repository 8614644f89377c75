package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bibin-skaria/ocireg/internal/ocitypes"
)

func newTestRegistry(t *testing.T, srv *httptest.Server) *Registry {
	t.Helper()
	ru := ocitypes.ParseRegistryURI(srv.Listener.Addr().String())
	reg, err := NewRegistry(context.Background(), ru, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestWriterMonolithicUpload(t *testing.T) {
	body := []byte("0123456789")
	sum := sha256.Sum256(body)
	wantDigest := "sha256:" + hex.EncodeToString(sum[:])

	var gotMethod, gotPath, gotQuery string
	var gotBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/r/blobs/uploads/", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	reg := newTestRegistry(t, srv)
	w, ok, err := CreateWriter(context.Background(), reg, "r", ocitypes.MediaTypeLayer(ocitypes.CompressionNone), int64(len(body)), "")
	if err != nil || !ok {
		t.Fatalf("CreateWriter: ok=%v err=%v", ok, err)
	}
	if err := w.Write(context.Background(), body); err != nil {
		t.Fatal(err)
	}
	layer, err := w.Layer()
	if err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/v2/r/blobs/uploads/" {
		t.Errorf("path = %s", gotPath)
	}
	if gotQuery != fmt.Sprintf("digest=%s", wantDigest) {
		t.Errorf("query = %s, want digest=%s", gotQuery, wantDigest)
	}
	if string(gotBody) != string(body) {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
	if layer.Digest.String() != wantDigest {
		t.Errorf("digest = %s, want %s", layer.Digest, wantDigest)
	}
	if layer.Size != int64(len(body)) {
		t.Errorf("size = %d, want %d", layer.Size, len(body))
	}
}

func TestWriterChunkedUpload(t *testing.T) {
	const size = 20 * 1024 * 1024
	full := make([]byte, size)
	for i := range full {
		full[i] = byte(i)
	}
	sum := sha256.Sum256(full)
	wantDigest := "sha256:" + hex.EncodeToString(sum[:])

	type call struct {
		method string
		rng    string
	}
	var calls []call
	reassembled := make([]byte, 0, size)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/r/blobs/uploads/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/u/1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/u/1", func(w http.ResponseWriter, r *http.Request) {
		chunk, _ := io.ReadAll(r.Body)
		reassembled = append(reassembled, chunk...)
		calls = append(calls, call{method: r.Method, rng: r.Header.Get("Content-Range")})
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusAccepted)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	reg := newTestRegistry(t, srv)
	w, ok, err := CreateWriter(context.Background(), reg, "r", ocitypes.MediaTypeLayer(ocitypes.CompressionGzip), size, "")
	if err != nil || !ok {
		t.Fatalf("CreateWriter: ok=%v err=%v", ok, err)
	}

	chunks := [][]byte{full[0:5242880], full[5242880:10485760], full[10485760:20971520]}
	for _, c := range chunks {
		if err := w.Write(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}
	layer, err := w.Layer()
	if err != nil {
		t.Fatal(err)
	}

	wantCalls := []call{
		{http.MethodPatch, "0-5242880"},
		{http.MethodPatch, "5242880-10485760"},
		{http.MethodPut, "10485760-20971520"},
	}
	if len(calls) != len(wantCalls) {
		t.Fatalf("got %d calls, want %d: %+v", len(calls), len(wantCalls), calls)
	}
	for i, want := range wantCalls {
		if calls[i] != want {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want)
		}
	}
	if string(reassembled) != string(full) {
		t.Errorf("reassembled body did not match original")
	}
	if layer.Digest.String() != wantDigest {
		t.Errorf("digest = %s, want %s", layer.Digest, wantDigest)
	}
}

func TestWriterDedupSkipsUpload(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/r/blobs/", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	reg := newTestRegistry(t, srv)
	_, ok, err := CreateWriter(context.Background(), reg, "r", ocitypes.MediaTypeLayer(ocitypes.CompressionNone), 10, "sha256:"+hex.EncodeToString(make([]byte, 32)))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected dedup hit to skip the writer")
	}
	if !called {
		t.Error("expected HEAD blob request")
	}
}
