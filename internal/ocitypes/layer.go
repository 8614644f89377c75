package ocitypes

import "github.com/opencontainers/go-digest"

// Layer describes a single blob reference: a config, a tar layer, or (when
// Platform is set) an entry in an image index pointing at a manifest.
type Layer struct {
	MediaType MediaType  `json:"mediaType"`
	Size      int64      `json:"size"`
	Digest    digest.Digest `json:"digest"`
	Platform  *Platform  `json:"platform,omitempty"`
}
