// Package mcp implements the Model Context Protocol server for RepoWhisper.
package mcp

import (
	"context"
	"errors"
	"fmt"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeEmbedderUnavailable indicates the embedding backend is down.
	ErrCodeEmbedderUnavailable = -32001

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodePathNotAllowed indicates the path failed the allowlist check.
	ErrCodePathNotAllowed = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var coded *rwerrors.Error
	if errors.As(err, &coded) {
		return mapCodedError(coded)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// mapCodedError converts a coded error to an MCPError.
func mapCodedError(ce *rwerrors.Error) *MCPError {
	switch ce.Code {
	case rwerrors.ErrCodeEmbedderUnavailable, rwerrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeEmbedderUnavailable, Message: ce.Message}
	case rwerrors.ErrCodePathNotAllowed, rwerrors.ErrCodeAllowlistMissing, rwerrors.ErrCodeAllowlistEmpty:
		return &MCPError{Code: ErrCodePathNotAllowed, Message: ce.Message}
	}

	switch ce.Category {
	case rwerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ce.Message}
	case rwerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: ce.Message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: ce.Message}
	}
}
