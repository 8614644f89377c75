package copy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// fakeRegistry is a minimal in-memory OCI distribution server sufficient
// to exercise the copy orchestrator end to end: blob HEAD/GET/POST and
// manifest GET/PUT.
type fakeRegistry struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	manifests map[string][]byte
}

func newFakeRegistry() *httptest.Server {
	fr := &fakeRegistry{blobs: map[string][]byte{}, manifests: map[string][]byte{}}
	mux := http.NewServeMux()

	mux.HandleFunc("/v2/r/blobs/uploads/", func(w http.ResponseWriter, r *http.Request) {
		dgst := r.URL.Query().Get("digest")
		data, _ := io.ReadAll(r.Body)
		fr.mu.Lock()
		fr.blobs[dgst] = data
		fr.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/v2/r/blobs/", func(w http.ResponseWriter, r *http.Request) {
		dgst := strings.TrimPrefix(r.URL.Path, "/v2/r/blobs/")
		fr.mu.Lock()
		data, ok := fr.blobs[dgst]
		fr.mu.Unlock()
		switch r.Method {
		case http.MethodHead:
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.Write(data)
		}
	})
	mux.HandleFunc("/v2/r/manifests/", func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/v2/r/manifests/")
		switch r.Method {
		case http.MethodGet:
			fr.mu.Lock()
			data, ok := fr.manifests[ref]
			fr.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			fr.mu.Lock()
			fr.manifests[ref] = data
			fr.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		}
	})
	return httptest.NewServer(mux)
}

func mustURI(t *testing.T, srv *httptest.Server, repo, ref string) *registry.URI {
	t.Helper()
	ru := ocitypes.ParseRegistryURI(srv.Listener.Addr().String())
	reg, err := registry.NewRegistry(context.Background(), ru, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	return &registry.URI{Registry: reg, Repository: repo, Reference: ocitypes.Reference{Tag: ref}}
}

func seedSourceImage(t *testing.T, srv *httptest.Server) (digest.Digest, digest.Digest, digest.Digest) {
	t.Helper()
	configBody := []byte(`{"architecture":"amd64","os":"linux"}`)
	layerBody := []byte("layer-bytes")
	configDigest := digest.FromBytes(configBody)
	layerDigest := digest.FromBytes(layerBody)

	u := mustURI(t, srv, "r", "latest")
	// seed blobs directly through the writer path (monolithic, single write).
	for _, pair := range []struct {
		mt   ocitypes.MediaType
		body []byte
	}{
		{ocitypes.MediaTypeConfig, configBody},
		{ocitypes.MediaTypeLayer(ocitypes.CompressionNone), layerBody},
	} {
		w, ok, err := registry.CreateWriter(context.Background(), u.Registry, "r", pair.mt, int64(len(pair.body)), "")
		if err != nil || !ok {
			t.Fatalf("seed writer: ok=%v err=%v", ok, err)
		}
		if err := w.Write(context.Background(), pair.body); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Layer(); err != nil {
			t.Fatal(err)
		}
	}

	manifest := ocitypes.Image{
		SchemaVersion: 2,
		MediaType:     ocitypes.MediaTypeManifest,
		Config:        ocitypes.Layer{MediaType: ocitypes.MediaTypeConfig, Size: int64(len(configBody)), Digest: configDigest},
		Layers:        []ocitypes.Layer{{MediaType: ocitypes.MediaTypeLayer(ocitypes.CompressionNone), Size: int64(len(layerBody)), Digest: layerDigest}},
	}
	manifestBody, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	manifestDigest := digest.FromBytes(manifestBody)

	putReq, err := http.NewRequest(http.MethodPut, fmt.Sprintf("http://%s/v2/r/manifests/%s", srv.Listener.Addr().String(), manifestDigest.String()), strings.NewReader(string(manifestBody)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Client().Do(putReq); err != nil {
		t.Fatal(err)
	}

	index := ocitypes.Index{
		SchemaVersion: 2,
		MediaType:     ocitypes.MediaTypeImageIndex,
		Manifests:     []ocitypes.Layer{{MediaType: ocitypes.MediaTypeManifest, Size: int64(len(manifestBody)), Digest: manifestDigest}},
	}
	indexBody, err := json.Marshal(index)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("http://%s/v2/r/manifests/latest", srv.Listener.Addr().String()), strings.NewReader(string(indexBody)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Client().Do(req); err != nil {
		t.Fatal(err)
	}

	return configDigest, layerDigest, manifestDigest
}

func TestCopyPreservesDigests(t *testing.T) {
	src := newFakeRegistry()
	defer src.Close()
	dst := newFakeRegistry()
	defer dst.Close()

	configDigest, layerDigest, manifestDigest := seedSourceImage(t, src)

	srcURI := mustURI(t, src, "r", "latest")
	dstURI := mustURI(t, dst, "r", "latest")

	if err := Copy(context.Background(), srcURI, dstURI); err != nil {
		t.Fatal(err)
	}

	for _, dgst := range []digest.Digest{configDigest, layerDigest} {
		resp, err := dst.Client().Head(fmt.Sprintf("http://%s/v2/r/blobs/%s", dst.Listener.Addr().String(), dgst.String()))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("blob %s missing at destination: status %d", dgst, resp.StatusCode)
		}
	}

	resp, err := dst.Client().Get(fmt.Sprintf("http://%s/v2/r/manifests/%s", dst.Listener.Addr().String(), manifestDigest.String()))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("manifest %s missing at destination: status %d", manifestDigest, resp.StatusCode)
	}

	resp2, err := dst.Client().Get(fmt.Sprintf("http://%s/v2/r/manifests/latest", dst.Listener.Addr().String()))
	if err != nil {
		t.Fatal(err)
	}
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("index missing at destination: status %d", resp2.StatusCode)
	}
}
