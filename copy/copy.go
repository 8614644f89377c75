// Package copy implements the digest-preserving cross-registry copy
// orchestrator: fetch the source index, push every referenced image's
// blobs and manifest to the target, then push the index itself.
package copy

import (
	"context"

	"golang.org/x/sync/errgroup"

	img "github.com/bibin-skaria/ocireg/image"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// Copy copies every manifest referenced by the index at src to dst,
// preserving every blob and manifest digest, then pushes the index at
// src's own reference (tag or digest) to dst. Per §4.11/§5, a
// manifest's config uploads sequentially before its layers run
// concurrently, a manifest is pushed only once all of its blobs are
// present at dst, and the index is pushed only once every manifest is.
func Copy(ctx context.Context, src, dst *registry.URI) error {
	idx, err := img.FetchIndex(ctx, src)
	if err != nil {
		return err
	}

	for _, entry := range idx.Manifests {
		srcImageURI := src.WithReference(ocitypes.Reference{Digest: entry.Digest})
		dstImageURI := dst.WithReference(ocitypes.Reference{Digest: entry.Digest})
		if err := copyImage(ctx, srcImageURI, dstImageURI); err != nil {
			return err
		}
	}

	_, err = registry.PushManifest(ctx, dst.Registry, idx.MediaType, dst.Repository, src.Reference.String(), idx, nil)
	return err
}

func copyImage(ctx context.Context, src, dst *registry.URI) error {
	image, err := img.Fetch(ctx, src)
	if err != nil {
		return err
	}

	if err := registry.CopyBlob(ctx, src.Registry, src.Repository, dst.Registry, dst.Repository, image.Config); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, layer := range image.Layers {
		layer := layer
		g.Go(func() error {
			return registry.CopyBlob(gctx, src.Registry, src.Repository, dst.Registry, dst.Repository, layer)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	_, err = img.Push(ctx, dst, image)
	return err
}
