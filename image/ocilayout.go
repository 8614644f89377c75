package image

import (
	"archive/tar"
	"context"
	"encoding/json"
	"io"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

const ociLayoutContent = `{"imageLayoutVersion":"1.0.0"}`

// ToOCI writes idx (optionally narrowed to a single platform) as an
// OCI-archive tar to w: oci-layout, blobs/sha256/{hex} for every
// manifest, config, and layer blob the (filtered) index references, and
// index.json. If platform is given and no entry matches, it fails with
// IndexNoPlatform. Per-manifest blob downloads run concurrently.
func ToOCI(ctx context.Context, u *registry.URI, idx ocitypes.Index, platform *ocitypes.Platform, w io.Writer) error {
	manifests := idx.Manifests
	if platform != nil {
		entry, ok, err := SelectPlatform(idx, platform)
		if err != nil {
			return err
		}
		if !ok {
			return ocierr.IndexNoPlatform(platform.String())
		}
		manifests = []ocitypes.Layer{entry}
	}
	filtered := ocitypes.Index{SchemaVersion: idx.SchemaVersion, MediaType: idx.MediaType, Manifests: manifests}

	tw := tar.NewWriter(w)
	if err := addBytesToTar(tw, "oci-layout", []byte(ociLayoutContent)); err != nil {
		return err
	}

	written := make(map[digest.Digest]bool)
	for _, entry := range manifests {
		manifestBytes, err := u.Registry.FetchManifestRaw(ctx, u.Repository, entry.Digest.String())
		if err != nil {
			return err
		}
		if err := writeBlobOnce(tw, entry.Digest, manifestBytes, written); err != nil {
			return err
		}

		img, err := Fetch(ctx, u.WithReference(ocitypes.Reference{Digest: entry.Digest}))
		if err != nil {
			return err
		}

		configBody, _, err := u.Registry.FetchBlob(ctx, u.Repository, img.Config.Digest)
		if err != nil {
			return err
		}
		configBytes, err := io.ReadAll(configBody)
		configBody.Close()
		if err != nil {
			return ocierr.LayerRead(err)
		}
		if err := writeBlobOnce(tw, img.Config.Digest, configBytes, written); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		blobs := make([][]byte, len(img.Layers))
		for i, layer := range img.Layers {
			i, layer := i, layer
			g.Go(func() error {
				body, _, err := u.Registry.FetchBlob(gctx, u.Repository, layer.Digest)
				if err != nil {
					return err
				}
				defer body.Close()
				data, err := io.ReadAll(body)
				if err != nil {
					return ocierr.LayerRead(err)
				}
				blobs[i] = data
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for i, layer := range img.Layers {
			if err := writeBlobOnce(tw, layer.Digest, blobs[i], written); err != nil {
				return err
			}
		}
	}

	indexJSON, err := json.Marshal(filtered)
	if err != nil {
		return ocierr.Serialize(err)
	}
	if err := addBytesToTar(tw, "index.json", indexJSON); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return ocierr.Archive(err)
	}
	return nil
}

func writeBlobOnce(tw *tar.Writer, dgst digest.Digest, data []byte, written map[digest.Digest]bool) error {
	if written[dgst] {
		return nil
	}
	name := "blobs/" + string(dgst.Algorithm()) + "/" + dgst.Encoded()
	if err := addBytesToTar(tw, name, data); err != nil {
		return err
	}
	written[dgst] = true
	return nil
}
