// Package errors provides the structured error type used across
// directory-indexer. Error codes follow spec section 7's taxonomy: io,
// database, http, json, config, embedding, vector_store, file_processing,
// invalid_input, not_found, mcp, environment_setup.
package errors

import "fmt"

// SetupURL is the documentation link every environment_setup failure
// message must include alongside the unreachable endpoint.
const SetupURL = "https://github.com/peteretelej/directory-indexer#setup"

// Kind is one of the twelve error categories named in spec section 7.
type Kind string

const (
	KindIO              Kind = "io"
	KindDatabase        Kind = "database"
	KindHTTP            Kind = "http"
	KindJSON            Kind = "json"
	KindConfig          Kind = "config"
	KindEmbedding       Kind = "embedding"
	KindVectorStore     Kind = "vector_store"
	KindFileProcessing  Kind = "file_processing"
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindMCP             Kind = "mcp"
	KindEnvironmentSetup Kind = "environment_setup"
)

// IndexerError is the structured error type returned by every package in
// this module. It carries enough context for the tool server to map it to
// a JSON-RPC error code and for the CLI to print a useful message.
type IndexerError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *IndexerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *IndexerError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, &IndexerError{Kind: X}) compare by Kind alone.
func (e *IndexerError) Is(target error) bool {
	t, ok := target.(*IndexerError)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an IndexerError of the given kind.
func New(kind Kind, message string) *IndexerError {
	return &IndexerError{Kind: kind, Message: message}
}

// Wrap creates an IndexerError of the given kind, preserving cause for
// errors.Unwrap. Returns nil if cause is nil.
func Wrap(kind Kind, message string, cause error) *IndexerError {
	if cause == nil {
		return nil
	}
	return &IndexerError{Kind: kind, Message: message, Cause: cause}
}

func IO(format string, args ...any) *IndexerError {
	return New(KindIO, fmt.Sprintf(format, args...))
}

func Database(format string, args ...any) *IndexerError {
	return New(KindDatabase, fmt.Sprintf(format, args...))
}

func HTTP(format string, args ...any) *IndexerError {
	return New(KindHTTP, fmt.Sprintf(format, args...))
}

func JSON(format string, args ...any) *IndexerError {
	return New(KindJSON, fmt.Sprintf(format, args...))
}

func Config(format string, args ...any) *IndexerError {
	return New(KindConfig, fmt.Sprintf(format, args...))
}

func Embedding(format string, args ...any) *IndexerError {
	return New(KindEmbedding, fmt.Sprintf(format, args...))
}

func VectorStore(format string, args ...any) *IndexerError {
	return New(KindVectorStore, fmt.Sprintf(format, args...))
}

func FileProcessing(format string, args ...any) *IndexerError {
	return New(KindFileProcessing, fmt.Sprintf(format, args...))
}

func InvalidInput(format string, args ...any) *IndexerError {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *IndexerError {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func MCP(format string, args ...any) *IndexerError {
	return New(KindMCP, fmt.Sprintf(format, args...))
}

func EnvironmentSetup(format string, args ...any) *IndexerError {
	return New(KindEnvironmentSetup, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind from err if it is an *IndexerError, and the
// zero Kind otherwise.
func KindOf(err error) Kind {
	if ie, ok := err.(*IndexerError); ok {
		return ie.Kind
	}
	return ""
}

// IsKind reports whether err is an *IndexerError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
