package registry

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opencontainers/go-digest"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
)

// Token, TokenKind and TokenBearer/TokenBasic are aliased from ocitypes so
// the rest of this package can refer to them without an import qualifier,
// matching how the reference implementation keeps its wire types and its
// client code in the same conceptual layer.
type (
	Token     = ocitypes.Token
	TokenKind = ocitypes.TokenKind
)

const (
	TokenBearer = ocitypes.TokenBearer
	TokenBasic  = ocitypes.TokenBasic
)

// Registry is a cheaply-shared handle to one registry host: one HTTP
// client, one resolved token, immutable after construction except for the
// --insecure override.
type Registry struct {
	uri    ocitypes.RegistryURI
	client *rawClient
	http   *http.Client
}

// NewRegistry resolves credentials for uri (via DiscoverAuth) and
// constructs a Registry bound to httpClient. Pass a nil httpClient to use
// http.DefaultClient.
func NewRegistry(ctx context.Context, uri ocitypes.RegistryURI, httpClient *http.Client) (*Registry, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	token, err := DiscoverAuth(ctx, uri, httpClient)
	if err != nil {
		return nil, err
	}
	return &Registry{
		uri:    uri,
		client: newRawClient(httpClient, token),
		http:   httpClient,
	}, nil
}

func (r *Registry) URI() ocitypes.RegistryURI {
	return r.uri
}

func (r *Registry) SetSecure(secure bool) {
	r.uri.Secure = secure
}

func (r *Registry) baseURL() (*url.URL, error) {
	return r.uri.URL()
}

func decodeErrorResponse(resp *http.Response) ocitypes.ErrorResponse {
	defer resp.Body.Close()
	var body ocitypes.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return body
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Catalog lists every repository the registry exposes.
func (r *Registry) Catalog(ctx context.Context) ([]string, error) {
	base, err := r.baseURL()
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Catalog(ctx, base)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return nil, ocierr.ListRepos(reason.String())
	}
	defer resp.Body.Close()
	var body struct {
		Repositories []string `json:"repositories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, ocierr.BodyDeserialize(err)
	}
	return body.Repositories, nil
}

// GetTags lists every tag in repository.
func (r *Registry) GetTags(ctx context.Context, repository string) ([]string, error) {
	base, err := r.baseURL()
	if err != nil {
		return nil, err
	}
	resp, err := r.client.GetTags(ctx, base, repository)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return nil, ocierr.ListTags(reason.String())
	}
	defer resp.Body.Close()
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, ocierr.BodyDeserialize(err)
	}
	return body.Tags, nil
}

// CheckBlob reports whether a blob with the given digest already exists
// in repository.
func (r *Registry) CheckBlob(ctx context.Context, repository string, dgst digest.Digest) (bool, error) {
	base, err := r.baseURL()
	if err != nil {
		return false, err
	}
	resp, err := r.client.HeadBlob(ctx, base, repository, dgst.String())
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// FetchBlob returns a lazy byte stream for a blob plus its Content-Length.
func (r *Registry) FetchBlob(ctx context.Context, repository string, dgst digest.Digest) (io.ReadCloser, int64, error) {
	base, err := r.baseURL()
	if err != nil {
		return nil, 0, err
	}
	resp, err := r.client.GetBlob(ctx, base, repository, dgst.String())
	if err != nil {
		return nil, 0, err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return nil, 0, ocierr.FetchBlob(reason.String())
	}
	cl := resp.Header.Get("Content-Length")
	if cl == "" {
		resp.Body.Close()
		return nil, 0, ocierr.ContentLengthMissing()
	}
	size, err := strconv.ParseInt(cl, 10, 64)
	if err != nil {
		resp.Body.Close()
		return nil, 0, ocierr.ContentLengthNotNumber(err)
	}
	return resp.Body, size, nil
}

// DeleteBlob deletes a blob by digest.
func (r *Registry) DeleteBlob(ctx context.Context, repository string, dgst digest.Digest) error {
	base, err := r.baseURL()
	if err != nil {
		return err
	}
	resp, err := r.client.DelBlob(ctx, base, repository, dgst.String())
	if err != nil {
		return err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return ocierr.DeleteBlob(dgst.String(), reason.String())
	}
	resp.Body.Close()
	return nil
}

// CheckManifest issues a HEAD for reference. Per the spec's documented
// open question, this can false-positive when reference resolves to a
// non-index manifest; callers that need a tighter check should GET and
// inspect mediaType themselves.
func (r *Registry) CheckManifest(ctx context.Context, repository, reference string) (bool, error) {
	base, err := r.baseURL()
	if err != nil {
		return false, err
	}
	resp, err := r.client.HeadManifest(ctx, base, repository, reference)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// FetchManifest fetches and JSON-decodes a manifest or index into T.
func FetchManifest[T any](ctx context.Context, r *Registry, repository, reference string) (T, error) {
	var zero T
	base, err := r.baseURL()
	if err != nil {
		return zero, err
	}
	resp, err := r.client.GetManifest(ctx, base, repository, reference)
	if err != nil {
		return zero, err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return zero, ocierr.FetchManifest(reason.String())
	}
	defer resp.Body.Close()
	var value T
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return zero, ocierr.BodyDeserialize(err)
	}
	return value, nil
}

// PushManifest serializes value to canonical JSON, PUTs it at reference,
// and returns a descriptor Layer for use in an index.
func PushManifest[T any](ctx context.Context, r *Registry, mediaType ocitypes.MediaType, repository, reference string, value T, platform *ocitypes.Platform) (ocitypes.Layer, error) {
	base, err := r.baseURL()
	if err != nil {
		return ocitypes.Layer{}, err
	}
	body, err := json.Marshal(value)
	if err != nil {
		return ocitypes.Layer{}, ocierr.Serialize(err)
	}
	sum := sha256.Sum256(body)
	dgst := digest.NewDigestFromEncoded(digest.SHA256, fmt.Sprintf("%x", sum))

	resp, err := r.client.PutManifest(ctx, base, repository, reference, body, mediaType.String())
	if err != nil {
		return ocitypes.Layer{}, err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return ocitypes.Layer{}, ocierr.PushImage(repository+"/"+reference, reason.String())
	}
	resp.Body.Close()

	return ocitypes.Layer{
		MediaType: mediaType,
		Size:      int64(len(body)),
		Digest:    dgst,
		Platform:  platform,
	}, nil
}

// FetchManifestRaw returns the manifest or index body exactly as stored,
// for callers (such as the OCI-archive exporter) that must preserve its
// bytes bit-for-bit rather than re-serializing a decoded value.
func (r *Registry) FetchManifestRaw(ctx context.Context, repository, reference string) ([]byte, error) {
	base, err := r.baseURL()
	if err != nil {
		return nil, err
	}
	resp, err := r.client.GetManifest(ctx, base, repository, reference)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return nil, ocierr.FetchManifest(reason.String())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ocierr.BodyDeserialize(err)
	}
	return body, nil
}

// DeleteTag deletes a manifest by tag. A digest reference is rejected,
// since deleting by digest could remove every tag sharing that content.
func (r *Registry) DeleteTag(ctx context.Context, repository string, ref ocitypes.Reference) error {
	if ref.IsDigest() {
		return ocierr.DeleteTagDigest()
	}
	base, err := r.baseURL()
	if err != nil {
		return err
	}
	resp, err := r.client.DelManifest(ctx, base, repository, ref.Tag)
	if err != nil {
		return err
	}
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return ocierr.DeleteTag(ref.Tag, reason.String())
	}
	resp.Body.Close()
	return nil
}

// URI is a fully resolved object reference: a Registry handle plus the
// repository and tag-or-digest that name one object within it.
type URI struct {
	Registry   *Registry
	Repository string
	Reference  ocitypes.Reference
}

// NewURI parses s and resolves credentials for its registry half.
func NewURI(ctx context.Context, s string, httpClient *http.Client) (*URI, error) {
	parsed, err := ocitypes.ParseURI(s)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(ctx, parsed.Registry, httpClient)
	if err != nil {
		return nil, err
	}
	return &URI{Registry: reg, Repository: parsed.Repository, Reference: parsed.Reference}, nil
}

func (u *URI) SetSecure(secure bool) {
	u.Registry.SetSecure(secure)
}

func (u *URI) String() string {
	return ocitypes.ParsedURI{
		Registry:   u.Registry.uri,
		Repository: u.Repository,
		Reference:  u.Reference,
	}.String()
}

// WithReference returns a copy of u pointing at a different reference
// within the same repository and registry, used to rebuild a URI around a
// resolved manifest digest.
func (u *URI) WithReference(ref ocitypes.Reference) *URI {
	return &URI{Registry: u.Registry, Repository: u.Repository, Reference: ref}
}
