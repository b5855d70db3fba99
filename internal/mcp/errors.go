// Package mcp implements the Model Context Protocol (MCP) server for wikigraph.
package mcp

import (
	"context"
	"errors"
	"fmt"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// Custom MCP error codes for wikigraph.
const (
	// ErrCodeIndexNotFound indicates setup has not been run.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates the query could not be embedded.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or a backend was unreachable.
	ErrCodeTimeout = -32003

	// ErrCodeIndexMismatch indicates the vector index disagrees with the
	// paragraph store or the embedder.
	ErrCodeIndexMismatch = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
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

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var wgErr *wgerrors.WikigraphError
	if errors.As(err, &wgErr) {
		return mapWikigraphError(wgErr)
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

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

func mapWikigraphError(we *wgerrors.WikigraphError) *MCPError {
	message := we.Message
	if we.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", we.Message, we.Suggestion)
	}

	switch we.Code {
	case wgerrors.ErrCodeQueryEmpty, wgerrors.ErrCodeInvalidLimit:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case wgerrors.ErrCodeCorpusEmpty, wgerrors.ErrCodeIndexNotFound:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case wgerrors.ErrCodeSchemaMismatch, wgerrors.ErrCodeDimensionMismatch:
		return &MCPError{Code: ErrCodeIndexMismatch, Message: message}
	}

	switch we.Category {
	case wgerrors.CategoryTransport:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case wgerrors.CategoryEmbedding:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case wgerrors.CategoryQuery:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
