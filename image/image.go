// Package image implements the manifest (Image) and image-index (Index)
// object-graph operations: fetch, push, platform selection, filesystem
// flattening, and Docker-tarball/OCI-archive export.
package image

import (
	"context"
	"encoding/json"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// Fetch retrieves the manifest at u, which must carry a digest reference
// (an image is addressed by content, never by a mutable tag directly).
func Fetch(ctx context.Context, u *registry.URI) (ocitypes.Image, error) {
	if !u.Reference.IsDigest() {
		return ocitypes.Image{}, ocierr.DirectLoadImage(u.String())
	}
	return registry.FetchManifest[ocitypes.Image](ctx, u.Registry, u.Repository, u.Reference.String())
}

// Push serializes img to canonical JSON and PUTs it at u's reference,
// returning a descriptor Layer for inclusion in an index.
func Push(ctx context.Context, u *registry.URI, img ocitypes.Image) (ocitypes.Layer, error) {
	return registry.PushManifest(ctx, u.Registry, img.MediaType, u.Repository, u.Reference.String(), img, img.Platform)
}

// Read decodes an Image manifest from an already-fetched byte stream,
// carrying platform forward as a transient hint exactly as FetchImage
// does for a registry-backed image.
func Read(data []byte, platform *ocitypes.Platform) (ocitypes.Image, error) {
	var img ocitypes.Image
	if err := json.Unmarshal(data, &img); err != nil {
		return ocitypes.Image{}, ocierr.ImageInvalidManifest(err)
	}
	img.Platform = platform
	return img, nil
}

// Create builds an Image manifest from a config descriptor and its ordered
// layers. platform is carried as a transient hint only; it is never part
// of the manifest's wire form.
func Create(config ocitypes.Layer, layers []ocitypes.Layer, platform *ocitypes.Platform) ocitypes.Image {
	return ocitypes.Image{
		SchemaVersion: 2,
		MediaType:     ocitypes.MediaTypeManifest,
		Config:        config,
		Layers:        layers,
		Platform:      platform,
	}
}

// CreateConfig serializes cfg, uploads it as a blob to u's repository,
// and returns its descriptor Layer.
func CreateConfig(ctx context.Context, u *registry.URI, cfg ocitypes.ImageConfig) (ocitypes.Layer, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return ocitypes.Layer{}, ocierr.Serialize(err)
	}
	w, ok, err := registry.CreateWriter(ctx, u.Registry, u.Repository, ocitypes.MediaTypeConfig, int64(len(body)), "")
	if err != nil {
		return ocitypes.Layer{}, err
	}
	if !ok {
		// CreateConfig never supplies an expected digest, so dedup never
		// short-circuits here; ok is always true.
		return ocitypes.Layer{}, ocierr.LayerBuild(nil)
	}
	if err := w.Write(ctx, body); err != nil {
		return ocitypes.Layer{}, err
	}
	return w.Layer()
}
