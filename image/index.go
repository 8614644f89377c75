package image

import (
	"context"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// FetchIndex retrieves the image index at u.
func FetchIndex(ctx context.Context, u *registry.URI) (ocitypes.Index, error) {
	idx, err := registry.FetchManifest[ocitypes.Index](ctx, u.Registry, u.Repository, u.Reference.String())
	if err != nil {
		return ocitypes.Index{}, ocierr.FetchIndex(err.Error())
	}
	return idx, nil
}

// CheckIndex issues a HEAD for u's reference. Per the spec's documented
// open question this can false-positive on a non-index manifest; callers
// that need a tighter check should Fetch and inspect MediaType.
func CheckIndex(ctx context.Context, u *registry.URI) (bool, error) {
	return u.Registry.CheckManifest(ctx, u.Repository, u.Reference.String())
}

// PushIndex serializes idx to canonical JSON and PUTs it at u's
// reference.
func PushIndex(ctx context.Context, u *registry.URI, idx ocitypes.Index) (ocitypes.Layer, error) {
	return registry.PushManifest(ctx, u.Registry, idx.MediaType, u.Repository, u.Reference.String(), idx, nil)
}

// New builds an Index from a set of per-platform manifest descriptors.
func New(manifests []ocitypes.Layer) ocitypes.Index {
	return ocitypes.Index{
		SchemaVersion: 2,
		MediaType:     ocitypes.MediaTypeImageIndex,
		Manifests:     manifests,
	}
}

// SelectPlatform implements §4.7's platform-selection rule: an explicit
// platform returns the first exact match or IndexNoPlatform; no platform
// tries the host default, then the first entry, then reports no match
// found (ok=false) without error.
func SelectPlatform(idx ocitypes.Index, platform *ocitypes.Platform) (ocitypes.Layer, bool, error) {
	if platform != nil {
		for _, m := range idx.Manifests {
			if m.Platform != nil && m.Platform.Equal(*platform) {
				return m, true, nil
			}
		}
		return ocitypes.Layer{}, false, ocierr.IndexNoPlatform(platform.String())
	}

	host := ocitypes.DefaultPlatform()
	for _, m := range idx.Manifests {
		if m.Platform != nil && m.Platform.Equal(host) {
			return m, true, nil
		}
	}
	if len(idx.Manifests) > 0 {
		return idx.Manifests[0], true, nil
	}
	return ocitypes.Layer{}, false, nil
}

// FetchImage resolves idx's platform-selected manifest entry (per
// SelectPlatform) and fetches the Image it points to, rebuilding u
// around the entry's digest. A nil *ocitypes.Image with a nil error
// means no entry matched and no platform was requested (the "None" case
// of §4.7's no-platform fallback chain).
func FetchImage(ctx context.Context, u *registry.URI, idx ocitypes.Index, platform *ocitypes.Platform) (*ocitypes.Image, error) {
	entry, ok, err := SelectPlatform(idx, platform)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	imgURI := u.WithReference(ocitypes.Reference{Digest: entry.Digest})
	img, err := Fetch(ctx, imgURI)
	if err != nil {
		return nil, err
	}
	img.Platform = entry.Platform
	return &img, nil
}
