package ocitypes

import "strings"

// ErrorCode is the OCI distribution specification's closed set of
// registry error codes.
type ErrorCode string

const (
	ErrorCodeBlobUnknown         ErrorCode = "BLOB_UNKNOWN"
	ErrorCodeBlobUploadInvalid   ErrorCode = "BLOB_UPLOAD_INVALID"
	ErrorCodeBlobUploadUnknown   ErrorCode = "BLOB_UPLOAD_UNKNOWN"
	ErrorCodeDigestInvalid       ErrorCode = "DIGEST_INVALID"
	ErrorCodeManifestBlobUnknown ErrorCode = "MANIFEST_BLOB_UNKNOWN"
	ErrorCodeManifestInvalid     ErrorCode = "MANIFEST_INVALID"
	ErrorCodeManifestUnknown     ErrorCode = "MANIFEST_UNKNOWN"
	ErrorCodeNameInvalid         ErrorCode = "NAME_INVALID"
	ErrorCodeNameUnknown         ErrorCode = "NAME_UNKNOWN"
	ErrorCodeSizeInvalid         ErrorCode = "SIZE_INVALID"
	ErrorCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrorCodeDenied              ErrorCode = "DENIED"
	ErrorCodeUnsupported         ErrorCode = "UNSUPPORTED"
	ErrorCodeTooManyRequests     ErrorCode = "TOOMANYREQUESTS"
)

// ErrorInfo is a single entry in a registry ErrorResponse.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

func (e ErrorInfo) String() string {
	message := e.Message
	if message == "" {
		message = e.Detail
	} else if e.Detail != "" {
		message = message + ": " + e.Detail
	}
	if message == "" {
		message = "unknown error occured"
	}
	return "[" + strings.ToLower(strings.ReplaceAll(string(e.Code), "_", " ")) + "] " + message
}

// ErrorResponse is the registry's standard non-2xx response body.
type ErrorResponse struct {
	Errors []ErrorInfo `json:"errors"`
}

func (e ErrorResponse) String() string {
	parts := make([]string, len(e.Errors))
	for i, info := range e.Errors {
		parts[i] = info.String()
	}
	return strings.Join(parts, "\n")
}
