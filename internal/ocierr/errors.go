// Package ocierr implements the closed error-kind taxonomy used across this
// module's registry, image, and archive packages. Each constructor produces
// an *Error carrying a fixed Kind so callers can branch with errors.As
// instead of string matching.
package ocierr

import (
	"fmt"
)

// Kind identifies which of the documented failure categories an Error
// belongs to.
type Kind string

const (
	KindMalformedURI        Kind = "malformed_uri"
	KindURL                 Kind = "url"
	KindRequest              Kind = "request"
	KindResponseDeserialize  Kind = "response_deserialize"
	KindBodyDeserialize      Kind = "body_deserialize"
	KindAuthorization        Kind = "authorization"
	KindFetchIndex           Kind = "fetch_index"
	KindFetchManifest        Kind = "fetch_manifest"
	KindFetchBlob            Kind = "fetch_blob"
	KindListRepos            Kind = "list_repos"
	KindListTags             Kind = "list_tags"
	KindPushImage            Kind = "push_image"
	KindUpload               Kind = "upload"
	KindStartBlobUpload      Kind = "start_blob_upload"
	KindFinishBlob           Kind = "finish_blob"
	KindDeleteBlob           Kind = "delete_blob"
	KindDeleteTag            Kind = "delete_tag"
	KindStartBlobNoLocation  Kind = "start_blob_no_location"
	KindContentLengthMissing Kind = "content_length_missing"
	KindContentLengthNotNum  Kind = "content_length_not_number"
	KindImproperHeader       Kind = "improper_header"
	KindDirectLoadBlob       Kind = "direct_load_blob"
	KindDirectLoadImage      Kind = "direct_load_image"
	KindDeleteBlobNoDigest   Kind = "delete_blob_no_digest"
	KindDeleteTagDigest      Kind = "delete_tag_digest"
	KindIndexNoPlatform      Kind = "index_no_platform"
	KindImageNotFound        Kind = "image_not_found"
	KindNoIndex              Kind = "no_index"
	KindImageNotValid        Kind = "image_not_valid"
	KindImageInvalidIndex    Kind = "image_invalid_index"
	KindImageInvalidManifest Kind = "image_invalid_manifest"
	KindBlobMissing          Kind = "blob_missing"
	KindFile                 Kind = "file"
	KindDirectory            Kind = "directory"
	KindTemp                 Kind = "temp"
	KindArchive              Kind = "archive"
	KindLayerArchive         Kind = "layer_archive"
	KindLayerCopy            Kind = "layer_copy"
	KindLayerRead            Kind = "layer_read"
	KindLayerWrite           Kind = "layer_write"
	KindLayerWait            Kind = "layer_wait"
	KindSerialize            Kind = "serialize"
	KindConfigDeserialize    Kind = "config_deserialize"
	KindInvalidAlgorithm     Kind = "invalid_algorithm"
	KindLayerBuild           Kind = "layer_build"
	KindIndexBuild           Kind = "index_build"
	KindURIBuild             Kind = "uri_build"
)

// Error is the concrete error type every constructor in this package
// returns. Message is the human-facing summary; Cause, when set, is the
// wrapped underlying error surfaced through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func new(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func MalformedURI(reason string) error {
	return new(KindMalformedURI, fmt.Sprintf("malformed object uri provided: %s", reason), nil)
}

func URL(cause error) error {
	return new(KindURL, "invalid url detected", cause)
}

func Request(cause error) error {
	return new(KindRequest, "failed to make request to oci registry", cause)
}

func ResponseDeserialize(cause error) error {
	return new(KindResponseDeserialize, "failed to parse response from oci registry", cause)
}

func BodyDeserialize(cause error) error {
	return new(KindBodyDeserialize, "failed to deserialize response body", cause)
}

func Authorization(reason string) error {
	return new(KindAuthorization, fmt.Sprintf("failed to authorize with oci registry: %s", reason), nil)
}

func FetchIndex(reason string) error {
	return new(KindFetchIndex, fmt.Sprintf("failed to fetch index: %s", reason), nil)
}

func FetchManifest(reason string) error {
	return new(KindFetchManifest, fmt.Sprintf("failed to fetch manifest: %s", reason), nil)
}

func FetchBlob(reason string) error {
	return new(KindFetchBlob, fmt.Sprintf("failed to fetch blob: %s", reason), nil)
}

func ListRepos(reason string) error {
	return new(KindListRepos, fmt.Sprintf("failed to list repositories in registry: %s", reason), nil)
}

func ListTags(reason string) error {
	return new(KindListTags, fmt.Sprintf("failed to list tags in repository: %s", reason), nil)
}

func PushImage(uri, reason string) error {
	return new(KindPushImage, fmt.Sprintf("failed to push image to '%s': %s", uri, reason), nil)
}

func Upload(reason string) error {
	return new(KindUpload, fmt.Sprintf("upload of chunk for blob failed: %s", reason), nil)
}

func StartBlobUpload(reason string) error {
	return new(KindStartBlobUpload, fmt.Sprintf("failed to start a blob upload: %s", reason), nil)
}

func FinishBlob(reason string) error {
	return new(KindFinishBlob, fmt.Sprintf("failed to finish blob upload: %s", reason), nil)
}

func DeleteBlob(digest, reason string) error {
	return new(KindDeleteBlob, fmt.Sprintf("failed to delete blob '%s': %s", digest, reason), nil)
}

func DeleteTag(tag, reason string) error {
	return new(KindDeleteTag, fmt.Sprintf("failed to delete tag '%s': %s", tag, reason), nil)
}

func StartBlobNoLocation() error {
	return new(KindStartBlobNoLocation, "registry did not provide an upload_url for blob upload", nil)
}

func ContentLengthMissing() error {
	return new(KindContentLengthMissing, "oci registry did not return the content length", nil)
}

func ContentLengthNotNumber(cause error) error {
	return new(KindContentLengthNotNum, "content-length was not a valid number", cause)
}

func ImproperHeader(cause error) error {
	return new(KindImproperHeader, "oci registry did not return a proper header", cause)
}

func DirectLoadBlob(uri string) error {
	return new(KindDirectLoadBlob, fmt.Sprintf("cannot read a blob without a specific digest uri (uri: %s)", uri), nil)
}

func DirectLoadImage(uri string) error {
	return new(KindDirectLoadImage, fmt.Sprintf("cannot direct load an image without a specific digest uri (uri: %s)", uri), nil)
}

func DeleteBlobNoDigest() error {
	return new(KindDeleteBlobNoDigest, "cannot delete a blob without a specific digest", nil)
}

func DeleteTagDigest() error {
	return new(KindDeleteTagDigest, "cannot delete a tag via a sha256 digest", nil)
}

func IndexNoPlatform(platform string) error {
	return new(KindIndexNoPlatform, fmt.Sprintf("index does not contain an image for the platform: %s", platform), nil)
}

func ImageNotFound(uri string) error {
	return new(KindImageNotFound, fmt.Sprintf("no image was found in oci registry matching: %s", uri), nil)
}

func NoIndex(uri string) error {
	return new(KindNoIndex, fmt.Sprintf("no image index found at uri: %s", uri), nil)
}

func ImageNotValid() error {
	return new(KindImageNotValid, "file is not a valid oci archive as it is missing index.json", nil)
}

func ImageInvalidIndex(cause error) error {
	return new(KindImageInvalidIndex, "oci image archive has invalid index", cause)
}

func ImageInvalidManifest(cause error) error {
	return new(KindImageInvalidManifest, "oci image archive does not have a valid manifest", cause)
}

func BlobMissing(digest string) error {
	return new(KindBlobMissing, fmt.Sprintf("blob with digest %s is missing from oci archive", digest), nil)
}

func File(cause error) error {
	return new(KindFile, "failed to interact with local file", cause)
}

func Directory(cause error) error {
	return new(KindDirectory, "failed to perform operation with directory", cause)
}

func Temp(cause error) error {
	return new(KindTemp, "failed to create temporary directory", cause)
}

func Archive(cause error) error {
	return new(KindArchive, "failed to interact with tar archive", cause)
}

func LayerArchive(cause error) error {
	return new(KindLayerArchive, "failed to unpack archive from layer", cause)
}

func LayerCopy(cause error) error {
	return new(KindLayerCopy, "failed to copy from layer", cause)
}

func LayerRead(cause error) error {
	return new(KindLayerRead, "failed to read from layer", cause)
}

func LayerWrite(cause error) error {
	return new(KindLayerWrite, "failed to write layer", cause)
}

func LayerWait(cause error) error {
	return new(KindLayerWait, "failed to wait for layer operation", cause)
}

func Serialize(cause error) error {
	return new(KindSerialize, "failed to serialize to json", cause)
}

func ConfigDeserialize(cause error) error {
	return new(KindConfigDeserialize, "failed to deserialize image configuration received from registry", cause)
}

func InvalidAlgorithm(algorithm string) error {
	return new(KindInvalidAlgorithm, fmt.Sprintf("invalid algorithm in digest: %s", algorithm), nil)
}

func LayerBuild(cause error) error {
	return new(KindLayerBuild, "invalid layer definition", cause)
}

func IndexBuild(cause error) error {
	return new(KindIndexBuild, "failed to build image index", cause)
}

func URIBuild(cause error) error {
	return new(KindURIBuild, "invalid object uri", cause)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if oe, ok := err.(*Error); ok {
			e = oe
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.Kind == kind
}
