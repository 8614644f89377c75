package ocitypes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
)

// RegistryURI is the host[:port] half of an object reference, with the
// scheme resolved to a secure/insecure flag.
type RegistryURI struct {
	Base   string
	Secure bool
}

// ParseRegistryURI applies the scheme-defaulting rule: an explicit
// http:// or https:// prefix sets Secure directly; otherwise the registry
// is secure unless its base names localhost or 127.0.0.1.
func ParseRegistryURI(s string) RegistryURI {
	switch {
	case strings.HasPrefix(s, "http://"):
		return RegistryURI{Base: strings.TrimPrefix(s, "http://"), Secure: false}
	case strings.HasPrefix(s, "https://"):
		return RegistryURI{Base: strings.TrimPrefix(s, "https://"), Secure: true}
	default:
		insecure := strings.Contains(s, "localhost") || strings.Contains(s, "127.0.0.1")
		return RegistryURI{Base: s, Secure: !insecure}
	}
}

// URL renders the registry base as an absolute URL using the resolved
// scheme.
func (r RegistryURI) URL() (*url.URL, error) {
	scheme := "http"
	if r.Secure {
		scheme = "https"
	}
	u, err := url.Parse(fmt.Sprintf("%s://%s", scheme, r.Base))
	if err != nil {
		return nil, ocierr.URL(err)
	}
	return u, nil
}

func parseAlgorithm(s string) (digest.Algorithm, error) {
	switch s {
	case "sha256":
		return digest.SHA256, nil
	case "sha512":
		return digest.SHA512, nil
	default:
		return "", ocierr.InvalidAlgorithm(s)
	}
}

// Reference is a tagged union: either a human tag or a content digest.
// IsDigest reports which form is populated.
type Reference struct {
	Tag    string
	Digest digest.Digest
}

func (r Reference) IsDigest() bool {
	return r.Digest != ""
}

func (r Reference) String() string {
	if r.IsDigest() {
		return string(r.Digest)
	}
	return r.Tag
}

// ParseReference parses the bare "tag" or "algo:hex" form of a reference.
func ParseReference(s string) (Reference, error) {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		algo, err := parseAlgorithm(s[:idx])
		if err != nil {
			return Reference{}, err
		}
		return Reference{Digest: digest.NewDigestFromEncoded(algo, s[idx+1:])}, nil
	}
	return Reference{Tag: s}, nil
}

// ParsedURI is the three-part object reference: registry, repository, and
// tag-or-digest.
type ParsedURI struct {
	Registry   RegistryURI
	Repository string
	Reference  Reference
}

func (p ParsedURI) String() string {
	return fmt.Sprintf("%s/%s%s", p.Registry.Base, p.Repository, referenceSuffix(p.Reference))
}

func referenceSuffix(r Reference) string {
	if r.IsDigest() {
		return "@" + string(r.Digest)
	}
	return ":" + r.Tag
}

// ParseURI parses "{registry}/{repo}[:tag|@algo:hex]". The repository
// segment may itself contain slashes.
func ParseURI(s string) (ParsedURI, error) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return ParsedURI{}, ocierr.MalformedURI("only a registry was provided in the uri")
	}
	registryPart, object := s[:idx], s[idx+1:]

	var repository string
	var reference Reference
	if at := strings.IndexByte(object, '@'); at >= 0 {
		repository = object[:at]
		digestPart := object[at+1:]
		colon := strings.IndexByte(digestPart, ':')
		if colon < 0 {
			return ParsedURI{}, ocierr.MalformedURI("no algorithm was provided for the digest")
		}
		algo, err := parseAlgorithm(digestPart[:colon])
		if err != nil {
			return ParsedURI{}, err
		}
		reference = Reference{Digest: digest.NewDigestFromEncoded(algo, digestPart[colon+1:])}
	} else {
		colon := strings.IndexByte(object, ':')
		if colon < 0 {
			return ParsedURI{}, ocierr.MalformedURI("no tag was provided for the object")
		}
		repository = object[:colon]
		reference = Reference{Tag: object[colon+1:]}
	}

	return ParsedURI{
		Registry:   ParseRegistryURI(registryPart),
		Repository: repository,
		Reference:  reference,
	}, nil
}
