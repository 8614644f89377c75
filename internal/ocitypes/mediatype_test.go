package ocitypes

import (
	"encoding/json"
	"testing"
)

func TestMediaTypeCompressionQuirk(t *testing.T) {
	if got := MediaTypeDockerImageRootfs(CompressionNone).EffectiveCompression(); got != CompressionGzip {
		t.Errorf("DockerImageRootfs(None).EffectiveCompression() = %v, want Gzip", got)
	}
	if got := MediaTypeLayer(CompressionZstd).EffectiveCompression(); got != CompressionZstd {
		t.Errorf("Layer(Zstd).EffectiveCompression() = %v, want Zstd", got)
	}
	if got := MediaTypeConfig.EffectiveCompression(); got != CompressionNone {
		t.Errorf("Config.EffectiveCompression() = %v, want None", got)
	}
}

func TestMediaTypeRoundTrip(t *testing.T) {
	cases := []MediaType{
		MediaTypeImageIndex,
		MediaTypeManifest,
		MediaTypeConfig,
		MediaTypeLayer(CompressionGzip),
		MediaTypeLayer(CompressionNone),
		MediaTypeDockerManifestList,
		MediaTypeDockerManifest,
		MediaTypeDockerContainerImage,
		MediaTypeDockerImageRootfs(CompressionZstd),
	}
	for _, mt := range cases {
		data, err := json.Marshal(mt)
		if err != nil {
			t.Fatalf("marshal %v: %v", mt, err)
		}
		var got MediaType
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != mt {
			t.Errorf("round trip mismatch: got %+v, want %+v (wire: %s)", got, mt, data)
		}
	}
}

func TestNewCompressionSuffix(t *testing.T) {
	tests := map[string]Compression{
		"application/vnd.oci.image.layer.v1.tar":      CompressionNone,
		"application/vnd.oci.image.layer.v1.tar+gzip": CompressionNone, // unknown suffix falls through to None
		"application/vnd.oci.image.layer.v1.tar.gz":   CompressionGzip,
		"application/vnd.oci.image.layer.v1.tar.xz":   CompressionXz,
		"application/vnd.oci.image.layer.v1.tar.lz4":  CompressionLz4,
		"application/vnd.oci.image.layer.v1.tar.zst":  CompressionZstd,
		"application/vnd.oci.image.layer.v1.tar.bz2":  CompressionBzip2,
	}
	for in, want := range tests {
		if got := NewCompression(in); got != want {
			t.Errorf("NewCompression(%q) = %v, want %v", in, got, want)
		}
	}
}
