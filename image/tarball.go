package image

import (
	"archive/tar"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// ToTarball writes img as a Docker `docker load` tarball to w: the
// config blob named by its digest, each layer named "{hex}.tar{ext}",
// and a one-element manifest.json naming them. Layer downloads run
// concurrently through a scratch directory; the manifest is written
// last.
func ToTarball(ctx context.Context, u *registry.URI, img ocitypes.Image, repoTag string, w io.Writer) error {
	scratch, err := os.MkdirTemp("", "ocireg-tarball-*")
	if err != nil {
		return ocierr.Temp(err)
	}
	defer os.RemoveAll(scratch)

	configPath := filepath.Join(scratch, img.Config.Digest.Encoded())
	if err := downloadBlob(ctx, u, img.Config, configPath); err != nil {
		return err
	}

	layerNames := make([]string, len(img.Layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, layer := range img.Layers {
		i, layer := i, layer
		name := layer.Digest.Encoded() + ".tar" + layer.MediaType.EffectiveCompression().Ext()
		layerNames[i] = name
		g.Go(func() error {
			return downloadBlob(gctx, u, layer, filepath.Join(scratch, name))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifest := []ocitypes.TarballManifest{{
		Config:   img.Config.Digest.Encoded(),
		RepoTags: []string{repoTag},
		Layers:   layerNames,
	}}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return ocierr.Serialize(err)
	}

	tw := tar.NewWriter(w)
	if err := addFileToTar(tw, configPath, img.Config.Digest.Encoded()); err != nil {
		return err
	}
	for _, name := range layerNames {
		if err := addFileToTar(tw, filepath.Join(scratch, name), name); err != nil {
			return err
		}
	}
	if err := addBytesToTar(tw, "manifest.json", manifestJSON); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return ocierr.Archive(err)
	}
	return nil
}

func downloadBlob(ctx context.Context, u *registry.URI, layer ocitypes.Layer, dest string) error {
	body, _, err := u.Registry.FetchBlob(ctx, u.Repository, layer.Digest)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return ocierr.File(err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return ocierr.LayerWrite(err)
	}
	return nil
}

func addFileToTar(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ocierr.File(err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: name, Size: info.Size(), Mode: 0644}); err != nil {
		return ocierr.Archive(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return ocierr.File(err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return ocierr.Archive(err)
	}
	return nil
}

func addBytesToTar(tw *tar.Writer, name string, data []byte) error {
	if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(data)), Mode: 0644}); err != nil {
		return ocierr.Archive(err)
	}
	if _, err := tw.Write(data); err != nil {
		return ocierr.Archive(err)
	}
	return nil
}
