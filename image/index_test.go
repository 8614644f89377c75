package image

import (
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
)

func manifestLayer(algo, hex, os, arch string) ocitypes.Layer {
	return ocitypes.Layer{
		MediaType: ocitypes.MediaTypeManifest,
		Digest:    digest.NewDigestFromEncoded(digest.Algorithm(algo), hex),
		Platform:  &ocitypes.Platform{OS: os, Architecture: arch},
	}
}

func TestSelectPlatformExplicitMatch(t *testing.T) {
	idx := ocitypes.Index{Manifests: []ocitypes.Layer{
		manifestLayer("sha256", "aaaa", "linux", "amd64"),
		manifestLayer("sha256", "bbbb", "linux", "arm64"),
	}}
	want := ocitypes.Platform{OS: "linux", Architecture: "arm64"}
	got, ok, err := SelectPlatform(idx, &want)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !got.Platform.Equal(want) {
		t.Fatalf("got %+v, ok=%v", got, ok)
	}
}

func TestSelectPlatformExplicitMiss(t *testing.T) {
	idx := ocitypes.Index{Manifests: []ocitypes.Layer{
		manifestLayer("sha256", "aaaa", "linux", "amd64"),
	}}
	want := ocitypes.Platform{OS: "windows", Architecture: "amd64"}
	_, _, err := SelectPlatform(idx, &want)
	if !ocierr.Is(err, ocierr.KindIndexNoPlatform) {
		t.Fatalf("expected IndexNoPlatform, got %v", err)
	}
}

func TestSelectPlatformNoRequestFallsBackToFirst(t *testing.T) {
	idx := ocitypes.Index{Manifests: []ocitypes.Layer{
		manifestLayer("sha256", "aaaa", "windows", "amd64"),
		manifestLayer("sha256", "bbbb", "solaris", "sparc"),
	}}
	got, ok, err := SelectPlatform(idx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.Digest.Encoded() != "aaaa" {
		t.Fatalf("got %+v, ok=%v, want first entry", got, ok)
	}
}

func TestSelectPlatformEmptyIndex(t *testing.T) {
	_, ok, err := SelectPlatform(ocitypes.Index{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for an empty index with no platform request")
	}
}
