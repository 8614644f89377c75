package ocitypes

import (
	"encoding/json"
	"fmt"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	crtypes "github.com/google/go-containerregistry/pkg/v1/types"
)

// Compression identifies the codec a layer's tar stream is wrapped in.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionLz4
	CompressionXz
	CompressionZstd
)

// NewCompression derives a Compression from a media type string's suffix,
// matching the original implementation's extension detection.
func NewCompression(s string) Compression {
	switch {
	case strings.HasSuffix(s, ".gz"), strings.HasSuffix(s, ".gzip2"):
		return CompressionGzip
	case strings.HasSuffix(s, ".xz"):
		return CompressionXz
	case strings.HasSuffix(s, ".lz4"):
		return CompressionLz4
	case strings.HasSuffix(s, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(s, ".bz2"), strings.HasSuffix(s, ".bzip2"):
		return CompressionBzip2
	default:
		return CompressionNone
	}
}

// Ext returns the filename extension associated with the compression, or
// the empty string for CompressionNone.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionBzip2:
		return ".bz2"
	case CompressionLz4:
		return ".lz4"
	case CompressionXz:
		return ".xz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// MediaTypeKind enumerates the closed set of OCI/Docker media types this
// module understands.
type MediaTypeKind int

const (
	KindImageIndex MediaTypeKind = iota
	KindManifest
	KindConfig
	KindLayer
	KindDockerManifestList
	KindDockerManifest
	KindDockerContainerImage
	KindDockerImageRootfs
)

// MediaType is a closed tagged union over the wire media type strings.
// Layer and DockerImageRootfs carry a Compression payload.
type MediaType struct {
	Kind        MediaTypeKind
	Compression Compression
}

var (
	MediaTypeImageIndex          = MediaType{Kind: KindImageIndex}
	MediaTypeManifest            = MediaType{Kind: KindManifest}
	MediaTypeConfig              = MediaType{Kind: KindConfig}
	MediaTypeDockerManifestList  = MediaType{Kind: KindDockerManifestList}
	MediaTypeDockerManifest      = MediaType{Kind: KindDockerManifest}
	MediaTypeDockerContainerImage = MediaType{Kind: KindDockerContainerImage}
)

func MediaTypeLayer(c Compression) MediaType {
	return MediaType{Kind: KindLayer, Compression: c}
}

func MediaTypeDockerImageRootfs(c Compression) MediaType {
	return MediaType{Kind: KindDockerImageRootfs, Compression: c}
}

// EffectiveCompression resolves the effective compression codec for this media
// type, applying the DockerImageRootfs(None) -> Gzip legacy quirk.
func (m MediaType) EffectiveCompression() Compression {
	switch m.Kind {
	case KindDockerImageRootfs:
		if m.Compression == CompressionNone {
			return CompressionGzip
		}
		return m.Compression
	case KindLayer:
		return m.Compression
	default:
		return CompressionNone
	}
}

func (m MediaType) String() string {
	switch m.Kind {
	case KindImageIndex:
		return ocispec.MediaTypeImageIndex
	case KindManifest:
		return ocispec.MediaTypeImageManifest
	case KindConfig:
		return ocispec.MediaTypeImageConfig
	case KindLayer:
		return "application/vnd.oci.image.layer.v1.tar" + m.Compression.Ext()
	case KindDockerManifestList:
		return string(crtypes.DockerManifestList)
	case KindDockerManifest:
		return string(crtypes.DockerManifestSchema2)
	case KindDockerContainerImage:
		return string(crtypes.DockerConfigJSON)
	case KindDockerImageRootfs:
		return "application/vnd.docker.image.rootfs.diff.tar" + m.Compression.Ext()
	default:
		return ""
	}
}

// ParseMediaType decodes a wire media type string into a MediaType,
// detecting the Layer/DockerImageRootfs compression suffix.
func ParseMediaType(s string) (MediaType, error) {
	switch {
	case strings.HasPrefix(s, "application/vnd.docker.image.rootfs.diff.tar"):
		return MediaTypeDockerImageRootfs(NewCompression(s)), nil
	case strings.HasPrefix(s, "application/vnd.oci.image.layer.v1.tar"):
		return MediaTypeLayer(NewCompression(s)), nil
	}
	switch s {
	case string(crtypes.DockerManifestList):
		return MediaTypeDockerManifestList, nil
	case string(crtypes.DockerManifestSchema2):
		return MediaTypeDockerManifest, nil
	case string(crtypes.DockerConfigJSON):
		return MediaTypeDockerContainerImage, nil
	case ocispec.MediaTypeImageManifest:
		return MediaTypeManifest, nil
	case ocispec.MediaTypeImageIndex:
		return MediaTypeImageIndex, nil
	case ocispec.MediaTypeImageConfig:
		return MediaTypeConfig, nil
	}
	return MediaType{}, fmt.Errorf("unknown media type: %s", s)
}

func (m MediaType) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MediaType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMediaType(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// IsIndexMediaType reports whether a media type string is an image index
// or Docker manifest list, used by the archive importer's nested-index
// resolution.
func IsIndexMediaType(s string) bool {
	return s == MediaTypeImageIndex.String() || s == MediaTypeDockerManifestList.String()
}
