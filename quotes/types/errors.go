package types

// ErrorKind classifies a provider or aggregator failure. Every failure that
// surfaces to a caller carries exactly one of these kinds.
type ErrorKind string

const (
	ErrInvalidParameter     ErrorKind = "InvalidParameter"
	ErrUnsupportedCorridor  ErrorKind = "UnsupportedCorridor"
	ErrAuthentication       ErrorKind = "Authentication"
	ErrConnection           ErrorKind = "Connection"
	ErrTimeout              ErrorKind = "Timeout"
	ErrRateLimit            ErrorKind = "RateLimit"
	ErrProviderAPI          ErrorKind = "ProviderApi"
	ErrParsing              ErrorKind = "Parsing"
	ErrInconsistentResponse ErrorKind = "InconsistentResponse"
	ErrInternal             ErrorKind = "Internal"
)

// String casts the error kind to string.
func (k ErrorKind) String() string {
	return string(k)
}

// Retryable reports whether an adapter may retry once after this failure.
// UnsupportedCorridor, InvalidParameter and Authentication must never be
// retried; Timeout is enforced by the executor and is final.
func (k ErrorKind) Retryable() bool {
	return k == ErrConnection || k == ErrRateLimit
}

// ProviderError is the per-provider failure entry in an AggregateResult.
type ProviderError struct {
	ErrorKind    ErrorKind `json:"error_kind"`
	ErrorMessage string    `json:"error_message"`
}
