package image

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/klauspost/compress/gzip"
	godigest "github.com/opencontainers/go-digest"

	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

func buildGzipTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(content)), Mode: 0644}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFilesystemWhiteoutFlattening(t *testing.T) {
	l0 := buildGzipTar(t, map[string]string{"a.txt": "v0", "b.txt": "v0"})
	l1 := buildGzipTar(t, map[string]string{"a.txt": "v1", ".wh.b.txt": ""})

	blobs := map[string][]byte{
		godigest.FromBytes(l0).String(): l0,
		godigest.FromBytes(l1).String(): l1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/r/blobs/", func(w http.ResponseWriter, r *http.Request) {
		dgst := r.URL.Path[len("/v2/r/blobs/"):]
		data, ok := blobs[dgst]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ru := ocitypes.ParseRegistryURI(srv.Listener.Addr().String())
	reg, err := registry.NewRegistry(context.Background(), ru, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	u := &registry.URI{Registry: reg, Repository: "r"}

	img := ocitypes.Image{
		Layers: []ocitypes.Layer{
			{MediaType: ocitypes.MediaTypeLayer(ocitypes.CompressionGzip), Digest: godigest.FromBytes(l0)},
			{MediaType: ocitypes.MediaTypeLayer(ocitypes.CompressionGzip), Digest: godigest.FromBytes(l1)},
		},
	}

	var out bytes.Buffer
	if err := Filesystem(context.Background(), u, img, &out); err != nil {
		t.Fatal(err)
	}

	tr := tar.NewReader(&out)
	seen := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		content, _ := io.ReadAll(tr)
		seen[hdr.Name] = string(content)
	}

	if got, want := seen["a.txt"], "v1"; got != want {
		t.Errorf("a.txt = %q, want %q", got, want)
	}
	if _, ok := seen["b.txt"]; ok {
		t.Errorf("b.txt should not appear in flattened output")
	}
	for name := range seen {
		if bytes.Contains([]byte(name), []byte(".wh.")) {
			t.Errorf("whiteout marker %q leaked into output", name)
		}
	}
}
