package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/directory-indexer/directory-indexer/internal/errors"
	"github.com/directory-indexer/directory-indexer/internal/index"
	"github.com/directory-indexer/directory-indexer/internal/search"
	"github.com/directory-indexer/directory-indexer/pkg/version"
)

// protocolVersion is the value reported from initialize. The tool server
// does not implement any MCP capability beyond flat tool invocation, so it
// is pinned rather than negotiated.
const protocolVersion = "2024-11-05"

// Server dispatches JSON-RPC requests to the indexing pipeline and the
// retrieval engine.
type Server struct {
	Pipeline *index.Pipeline
	Search   *search.Engine
	Logger   *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Serve reads one JSON-RPC request per line from r and writes one response
// per line to w, until r is exhausted or ctx is canceled. Notifications
// (requests without an id) produce no output line.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue
		}
		encoded, err := json.Marshal(resp)
		if err != nil {
			return errors.JSON("encode response: %v", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", encoded); err != nil {
			return errors.IO("write response: %v", err)
		}
	}
	return scanner.Err()
}

// handleLine parses and dispatches a single input line, returning nil when
// no response should be written.
func (s *Server) handleLine(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		resp := errorResponse(nil, CodeInvalidRequest, "invalid request: "+err.Error())
		return &resp
	}

	resp := s.dispatch(ctx, req)
	if req.IsNotification() {
		return nil
	}
	return &resp
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		return success(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    "directory-indexer",
				"version": version.Version,
			},
		})
	case "notifications/initialized":
		return success(req.ID, map[string]any{})
	case "tools/list":
		return success(req.ID, map[string]any{"tools": AllTools()})
	case "tools/call":
		return s.dispatchToolCall(ctx, req)
	case "resources/list":
		return success(req.ID, map[string]any{"resources": []any{}})
	case "resources/templates/list":
		return success(req.ID, map[string]any{"resourceTemplates": []any{}})
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) dispatchToolCall(ctx context.Context, req Request) Response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return invalidParams(req.ID, "malformed tools/call params: "+err.Error())
	}
	if params.Name == "" {
		return invalidParams(req.ID, "tool name is required")
	}

	var text string
	var callErr error

	switch params.Name {
	case "index":
		text, callErr = s.callIndex(ctx, params.Arguments)
	case "search":
		text, callErr = s.callSearch(ctx, params.Arguments)
	case "similar_files":
		text, callErr = s.callSimilarFiles(ctx, params.Arguments)
	case "get_content":
		text, callErr = s.callGetContent(ctx, params.Arguments)
	case "server_info":
		text, callErr = s.callServerInfo()
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name))
	}

	if callErr != nil {
		if ie, ok := callErr.(*errors.IndexerError); ok && ie.Kind == paramShapeSentinel {
			return invalidParams(req.ID, ie.Message)
		}
		return internalError(req.ID, callErr.Error())
	}

	return success(req.ID, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	})
}

// paramShapeSentinel marks errors raised while extracting tools/call
// arguments (missing required key, wrong JSON type, malformed chunk range)
// as -32602 invalid-params failures, distinct from domain errors raised
// once a tool actually runs, which section 4.5 maps to -32603 regardless
// of their underlying kind.
const paramShapeSentinel errors.Kind = "param_shape"

func paramShapeError(format string, args ...any) error {
	return &errors.IndexerError{Kind: paramShapeSentinel, Message: fmt.Sprintf(format, args...)}
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", paramShapeError("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", paramShapeError("argument %q must be a non-empty string", key)
	}
	return s, nil
}

func optionalLimit(args map[string]any, defaultLimit int) (int, error) {
	v, ok := args["limit"]
	if !ok {
		return defaultLimit, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, paramShapeError("argument %q must be a number", "limit")
	}
	return int(f), nil
}

func optionalString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", paramShapeError("argument %q must be a string", key)
	}
	return s, nil
}
