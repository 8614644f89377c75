package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/url"

	"github.com/opencontainers/go-digest"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
)

const (
	minChunkSize = 5 * 1024 * 1024
	maxChunkSize = 128 * 1024 * 1024
)

// chunkSize applies clamp(size/40, 5MiB, 128MiB), the part-size formula
// Layer.Copy uses to split a blob into the pieces it hands to Writer.Write.
func chunkSize(total int64) int64 {
	size := total / 40
	if size < minChunkSize {
		size = minChunkSize
	}
	if size > maxChunkSize {
		size = maxChunkSize
	}
	return size
}

type writerState int

const (
	// writerIdle has not yet seen a Write call and has not decided
	// monolithic vs chunked.
	writerIdle writerState = iota
	writerChunked
	writerDone
)

// Writer streams a blob to a repository. The monolithic-vs-chunked
// decision is made by the very first Write call: if it delivers the
// entire advertised size in one call, the blob is sent as a single
// POST; otherwise an upload session is started and every subsequent
// Write is sent as exactly one PATCH (or, once the advertised size is
// reached, one final PUT). The writer never re-chunks a caller's Write
// call and never buffers bytes across calls — callers that want a
// specific wire chunk size (e.g. Layer.Copy) must split before calling
// Write.
type Writer struct {
	registry   *Registry
	repository string
	mediaType  ocitypes.MediaType
	size       int64

	state     writerState
	uploadURL *url.URL
	offset    int64
	hasher    hash.Hash

	result ocitypes.Layer
}

// CreateWriter begins a blob upload for repository. If expectedDigest is
// non-empty and the registry already has a blob with that digest, it
// returns ok=false and a nil Writer so the caller can skip the transfer
// entirely (the dedup fast path).
func CreateWriter(ctx context.Context, r *Registry, repository string, mediaType ocitypes.MediaType, size int64, expectedDigest digest.Digest) (*Writer, bool, error) {
	if expectedDigest != "" {
		exists, err := r.CheckBlob(ctx, repository, expectedDigest)
		if err != nil {
			return nil, false, err
		}
		if exists {
			return nil, false, nil
		}
	}
	return &Writer{
		registry:   r,
		repository: repository,
		mediaType:  mediaType,
		size:       size,
		hasher:     sha256.New(),
	}, true, nil
}

// Write sends p in exactly one HTTP request: the monolithic POST (first
// call only, iff len(p) == size), a PATCH (more bytes remain after p),
// or the final PUT (p reaches or exceeds size). A first call that takes
// the chunked path also issues the POST that starts the upload session
// before its PATCH or PUT. Callers MUST NOT call Write again after the
// final PUT has gone out.
func (w *Writer) Write(ctx context.Context, p []byte) error {
	if w.state == writerDone {
		return fmt.Errorf("registry: write to closed blob writer")
	}
	if w.state == writerIdle {
		if int64(len(p)) == w.size {
			return w.writeMonolithic(ctx, p)
		}
		if err := w.start(ctx); err != nil {
			return err
		}
		w.state = writerChunked
	}
	return w.writeChunk(ctx, p)
}

func (w *Writer) writeMonolithic(ctx context.Context, p []byte) error {
	sum := sha256.Sum256(p)
	dgst := digest.NewDigestFromEncoded(digest.SHA256, hex.EncodeToString(sum[:]))

	base, err := w.registry.baseURL()
	if err != nil {
		return err
	}
	resp, err := w.registry.client.PostBlob(ctx, base, w.repository, p, dgst.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return ocierr.FinishBlob(reason.String())
	}
	w.state = writerDone
	w.result = ocitypes.Layer{MediaType: w.mediaType, Size: int64(len(p)), Digest: dgst}
	return nil
}

func (w *Writer) start(ctx context.Context) error {
	base, err := w.registry.baseURL()
	if err != nil {
		return err
	}
	resp, err := w.registry.client.StartUpload(ctx, base, w.repository)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 202 {
		reason := decodeErrorResponse(resp)
		return ocierr.StartBlobUpload(reason.String())
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return ocierr.StartBlobNoLocation()
	}
	resolved, err := resolveUploadURL(base, location)
	if err != nil {
		return err
	}
	w.uploadURL = resolved
	return nil
}

// resolveUploadURL treats the registry's Location header as an opaque
// URL: an absolute value is used verbatim, a relative one is resolved
// against the registry base per RFC 3986. The upload id it carries is
// never re-templated into a hand-built path.
func resolveUploadURL(base *url.URL, location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, ocierr.URL(err)
	}
	return base.ResolveReference(ref), nil
}

// writeChunk sends p as a single PATCH if more bytes remain after it, or
// as the final digest-bearing PUT once offset+len(p) reaches size.
func (w *Writer) writeChunk(ctx context.Context, p []byte) error {
	w.hasher.Write(p)
	start := w.offset
	end := w.offset + int64(len(p))

	if end < w.size {
		resp, err := w.registry.client.UploadPart(ctx, w.uploadURL, p, start, end)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 202 {
			reason := decodeErrorResponse(resp)
			return ocierr.Upload(reason.String())
		}
		if location := resp.Header.Get("Location"); location != "" {
			if resolved, err := resolveUploadURL(w.uploadURL, location); err == nil {
				w.uploadURL = resolved
			}
		}
		w.offset = end
		return nil
	}

	sum := w.hasher.Sum(nil)
	dgst := digest.NewDigestFromEncoded(digest.SHA256, hex.EncodeToString(sum))
	resp, err := w.registry.client.FinishBlobUpload(ctx, w.uploadURL, p, dgst.String(), start, end)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		reason := decodeErrorResponse(resp)
		return ocierr.FinishBlob(reason.String())
	}
	w.offset = end
	w.state = writerDone
	w.result = ocitypes.Layer{MediaType: w.mediaType, Size: w.offset, Digest: dgst}
	return nil
}

// Layer returns the descriptor for the completed upload. Callers MUST
// NOT call this until they have written exactly size bytes in total;
// the writer trusts the advertised size and does not detect a short
// write on its own.
func (w *Writer) Layer() (ocitypes.Layer, error) {
	if w.state != writerDone {
		return ocitypes.Layer{}, fmt.Errorf("registry: blob writer has not completed an upload")
	}
	return w.result, nil
}

// Close is an alias for Layer, for callers that prefer a close-style
// finalization call.
func (w *Writer) Close(ctx context.Context) (ocitypes.Layer, error) {
	return w.Layer()
}

// CopyBlob streams a blob from src to dst's repository, splitting the
// read into clamp(size/40, 5MiB, 128MiB) pieces and handing each to
// Writer.Write in turn, skipping the transfer entirely when dst already
// has the digest.
func CopyBlob(ctx context.Context, src *Registry, srcRepository string, dst *Registry, dstRepository string, layer ocitypes.Layer) error {
	w, ok, err := CreateWriter(ctx, dst, dstRepository, layer.MediaType, layer.Size, layer.Digest)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if layer.Size == 0 {
		if err := w.Write(ctx, nil); err != nil {
			return err
		}
		_, err = w.Layer()
		return err
	}
	body, _, err := src.FetchBlob(ctx, srcRepository, layer.Digest)
	if err != nil {
		return err
	}
	defer body.Close()

	buf := make([]byte, chunkSize(layer.Size))
	for {
		n, readErr := io.ReadFull(body, buf)
		if n > 0 {
			if err := w.Write(ctx, buf[:n]); err != nil {
				return err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return ocierr.LayerRead(readErr)
		}
	}
	_, err = w.Layer()
	return err
}
