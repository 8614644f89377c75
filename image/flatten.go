package image

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// Filesystem streams img's layers, top-most first, into a single tar
// stream representing the flattened root filesystem: a whiteout marker
// hides the regular file it names in every lower layer without itself
// appearing in the output, and the first copy of any regular file wins
// (the same path in lower layers is skipped). Other entry types, such as
// directories and links, are written once for each layer that carries
// them.
func Filesystem(ctx context.Context, u *registry.URI, img ocitypes.Image, w io.Writer) error {
	tw := tar.NewWriter(w)
	seen := make(map[string]bool)

	for i := len(img.Layers) - 1; i >= 0; i-- {
		layer := img.Layers[i]
		if err := flattenLayer(ctx, u, layer, tw, seen); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return ocierr.Archive(err)
	}
	return nil
}

func flattenLayer(ctx context.Context, u *registry.URI, layer ocitypes.Layer, tw *tar.Writer, seen map[string]bool) error {
	body, _, err := u.Registry.FetchBlob(ctx, u.Repository, layer.Digest)
	if err != nil {
		return err
	}
	defer body.Close()

	decompressed, err := decompress(body, layer.MediaType.EffectiveCompression())
	if err != nil {
		return err
	}
	if closer, ok := decompressed.(io.Closer); ok {
		defer closer.Close()
	}

	var whiteouts []string
	tr := tar.NewReader(decompressed)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			// A whiteout hides its target in lower layers only, so it takes
			// effect once this layer has been fully written.
			for _, p := range whiteouts {
				seen[p] = true
			}
			return nil
		}
		if err != nil {
			return ocierr.LayerArchive(err)
		}

		if strings.Contains(hdr.Name, ".wh.") {
			if dir, base := path.Split(hdr.Name); strings.HasPrefix(base, ".wh.") {
				whiteouts = append(whiteouts, dir+strings.TrimPrefix(base, ".wh."))
			}
			continue
		}
		if hdr.Typeflag == tar.TypeReg && seen[hdr.Name] {
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return ocierr.LayerRead(err)
			}
			continue
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return ocierr.Archive(err)
		}
		if _, err := io.Copy(tw, tr); err != nil {
			return ocierr.LayerCopy(err)
		}
		seen[hdr.Name] = true
	}
}

// decompress wraps r in the reader matching c. CompressionNone returns r
// unchanged.
func decompress(r io.Reader, c ocitypes.Compression) (io.Reader, error) {
	switch c {
	case ocitypes.CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, ocierr.LayerArchive(err)
		}
		return gz, nil
	case ocitypes.CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, ocierr.LayerArchive(err)
		}
		return &zstdReadCloser{Decoder: zr}, nil
	case ocitypes.CompressionBzip2:
		return bzip2.NewReader(r), nil
	case ocitypes.CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, ocierr.LayerArchive(err)
		}
		return xr, nil
	case ocitypes.CompressionLz4:
		return lz4.NewReader(r), nil
	default:
		return r, nil
	}
}

// zstdReadCloser adapts *zstd.Decoder's Close (which returns no error)
// to io.Closer so decompress can treat every codec uniformly.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}
