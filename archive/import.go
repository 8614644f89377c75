// Package archive implements the OCI-archive importer: reading a local
// oci-layout tar file and pushing every blob, manifest, and index it
// contains to a target registry.
package archive

import (
	"archive/tar"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	img "github.com/bibin-skaria/ocireg/image"
	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// archiveContents holds every tar entry read from an oci-layout file,
// keyed by its full path, so the importer can look blobs up either by
// exact path ("blobs/sha256/{hex}") or by a bare hex suffix (flat
// layouts), matching any tar path that ends in the digest's hex.
type archiveContents struct {
	byPath map[string][]byte
}

func readArchive(path string) (*archiveContents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ocierr.File(err)
	}
	defer f.Close()

	contents := &archiveContents{byPath: make(map[string][]byte)}
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ocierr.Archive(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, ocierr.Archive(err)
		}
		contents.byPath[hdr.Name] = data
	}
	return contents, nil
}

func (a *archiveContents) findIndexJSON() ([]byte, bool) {
	for path, data := range a.byPath {
		if strings.HasSuffix(path, "index.json") {
			return data, true
		}
	}
	return nil, false
}

// findBlob locates a blob by the hex suffix of its digest, tolerating
// both "blobs/sha256/{hex}" and flat layouts.
func (a *archiveContents) findBlob(dgst digest.Digest) ([]byte, bool) {
	hex := dgst.Encoded()
	for path, data := range a.byPath {
		if strings.HasSuffix(path, hex) {
			return data, true
		}
	}
	return nil, false
}

// resolveTerminalIndex follows §4.10 step 2: starting from the
// top-level index, recurse into any manifest entry whose referenced
// blob is itself an index/manifest-list, bounded by a seen-digest set
// per the spec's mandated cycle fix, and return the first non-index
// content found.
func resolveTerminalIndex(a *archiveContents, idx ocitypes.Index, seen map[digest.Digest]bool) (ocitypes.Index, error) {
	for _, entry := range idx.Manifests {
		if seen[entry.Digest] {
			continue
		}
		seen[entry.Digest] = true

		data, ok := a.findBlob(entry.Digest)
		if !ok {
			return ocitypes.Index{}, ocierr.BlobMissing(entry.Digest.String())
		}

		var probe struct {
			MediaType string `json:"mediaType"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return ocitypes.Index{}, ocierr.ImageInvalidIndex(err)
		}
		if !ocitypes.IsIndexMediaType(probe.MediaType) {
			// This entry's blob is a terminal (non-index) manifest, so
			// idx itself is the active index.
			return idx, nil
		}

		var nested ocitypes.Index
		if err := json.Unmarshal(data, &nested); err != nil {
			return ocitypes.Index{}, ocierr.ImageInvalidIndex(err)
		}
		if resolved, err := resolveTerminalIndex(a, nested, seen); err == nil {
			return resolved, nil
		}
	}
	return ocitypes.Index{}, ocierr.ImageNotValid()
}

// Push reads the OCI-archive tar at archivePath and pushes every
// blob/manifest it contains to target, finally pushing the top-level
// index at target's reference. Per §4.10/§4.11 ordering, a manifest is
// pushed only after every blob it depends on has uploaded successfully,
// and the index is pushed only after every manifest has.
func Push(ctx context.Context, archivePath string, target *registry.URI) error {
	a, err := readArchive(archivePath)
	if err != nil {
		return err
	}

	rawIndex, ok := a.findIndexJSON()
	if !ok {
		return ocierr.ImageNotValid()
	}
	var topIndex ocitypes.Index
	if err := json.Unmarshal(rawIndex, &topIndex); err != nil {
		return ocierr.ImageInvalidIndex(err)
	}

	active, err := resolveTerminalIndex(a, topIndex, make(map[digest.Digest]bool))
	if err != nil {
		return err
	}

	for _, entry := range active.Manifests {
		if err := pushManifestEntry(ctx, a, target, entry); err != nil {
			return err
		}
	}

	_, err = registry.PushManifest(ctx, target.Registry, topIndex.MediaType, target.Repository, target.Reference.String(), topIndex, nil)
	return err
}

func pushManifestEntry(ctx context.Context, a *archiveContents, target *registry.URI, entry ocitypes.Layer) error {
	data, ok := a.findBlob(entry.Digest)
	if !ok {
		return ocierr.BlobMissing(entry.Digest.String())
	}
	var manifest ocitypes.Image
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ocierr.ImageInvalidManifest(err)
	}

	if err := pushBlob(ctx, a, target, manifest.Config); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, layer := range manifest.Layers {
		layer := layer
		g.Go(func() error {
			return pushBlob(gctx, a, target, layer)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifestURI := target.WithReference(ocitypes.Reference{Digest: entry.Digest})
	_, err := img.Push(ctx, manifestURI, manifest)
	return err
}

func pushBlob(ctx context.Context, a *archiveContents, target *registry.URI, layer ocitypes.Layer) error {
	w, ok, err := registry.CreateWriter(ctx, target.Registry, target.Repository, layer.MediaType, layer.Size, layer.Digest)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	data, found := a.findBlob(layer.Digest)
	if !found {
		return ocierr.BlobMissing(layer.Digest.String())
	}
	if err := w.Write(ctx, data); err != nil {
		return err
	}
	_, err = w.Layer()
	return err
}
