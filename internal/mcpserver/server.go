package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/auth"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/playback"
)

// JSON-RPC 2.0 request
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSON-RPC 2.0 response
type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP tools/list result
type toolsListResult struct {
	Tools      []mcpTool `json:"tools"`
	NextCursor *string   `json:"nextCursor,omitempty"`
}

type mcpTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema inputSchema `json:"inputSchema"`
}

type inputSchema struct {
	Type       string                `json:"type"`
	Properties map[string]schemaProp `json:"properties"`
	Required   []string              `json:"required,omitempty"`
}

type schemaProp struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// MCP tools/call result
type toolsCallResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError"`
}

type contentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Gallery is the part of the gallery service exposed as MCP tools.
type Gallery interface {
	ListStories(ctx context.Context, limit int) ([]*models.Story, error)
	EncodeBase64(payload, mimeType string) ([]byte, error)
	Narrate(ctx context.Context, ownerID uuid.UUID, text string) (*playback.Reference, error)
}

// Server implements MCP JSON-RPC 2.0 over HTTP (tools/list and tools/call).
type Server struct {
	gallery Gallery
}

// NewServer returns a new MCP server backed by the gallery service.
func NewServer(gallery Gallery) *Server {
	return &Server{gallery: gallery}
}

// Handler returns the HTTP handler for JSON-RPC requests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveJSONRPC)
}

func (s *Server) serveJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, req.ID, -32700, "Parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPCError(w, req.ID, -32600, "Invalid Request")
		return
	}

	var result interface{}
	var rpcErr *rpcError
	switch req.Method {
	case "tools/list":
		result = toolList()
	case "tools/call":
		result, rpcErr = s.handleToolsCall(r.Context(), req.Params)
	default:
		writeRPCError(w, req.ID, -32601, "Method not found")
		return
	}

	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func toolList() *toolsListResult {
	return &toolsListResult{
		Tools: []mcpTool{
			{
				Name:        "list_stories",
				Description: "List the gallery's stories, newest first",
				InputSchema: inputSchema{
					Type: "object",
					Properties: map[string]schemaProp{
						"limit": {Type: "number", Description: "Maximum number of stories (default 50)"},
					},
				},
			},
			{
				Name:        "encode_wav",
				Description: "Wrap base64 linear PCM in a WAV container",
				InputSchema: inputSchema{
					Type: "object",
					Properties: map[string]schemaProp{
						"pcm_base64": {Type: "string", Description: "Standard padded base64 of little-endian PCM"},
						"mime_type":  {Type: "string", Description: "e.g. audio/L16;codec=pcm;rate=24000"},
					},
					Required: []string{"pcm_base64"},
				},
			},
			{
				Name:        "narrate",
				Description: "Read text aloud and return a playable WAV reference",
				InputSchema: inputSchema{
					Type: "object",
					Properties: map[string]schemaProp{
						"text": {Type: "string", Description: "Text to narrate"},
					},
					Required: []string{"text"},
				},
			},
		},
	}
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, paramsRaw json.RawMessage) (interface{}, *rpcError) {
	var params toolsCallParams
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return nil, &rpcError{Code: -32602, Message: "Invalid params"}
	}
	switch params.Name {
	case "list_stories":
		return s.callListStories(ctx, params.Arguments), nil
	case "encode_wav":
		return s.callEncodeWAV(params.Arguments), nil
	case "narrate":
		return s.callNarrate(ctx, params.Arguments), nil
	default:
		return nil, &rpcError{Code: -32602, Message: "Unknown tool: " + params.Name}
	}
}

func getStr(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getNum(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

func toolError(err error) *toolsCallResult {
	return &toolsCallResult{
		Content: []contentItem{{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}

func (s *Server) callListStories(ctx context.Context, args map[string]interface{}) *toolsCallResult {
	limit := getNum(args, "limit")
	if limit < 1 {
		limit = 50
	}
	stories, err := s.gallery.ListStories(ctx, limit)
	if err != nil {
		return toolError(err)
	}
	raw, _ := json.Marshal(stories)
	return &toolsCallResult{Content: []contentItem{{Type: "text", Text: string(raw)}}}
}

func (s *Server) callEncodeWAV(args map[string]interface{}) *toolsCallResult {
	out, err := s.gallery.EncodeBase64(getStr(args, "pcm_base64"), getStr(args, "mime_type"))
	if err != nil {
		return toolError(err)
	}
	return &toolsCallResult{
		Content: []contentItem{{
			Type:     "audio",
			Data:     base64.StdEncoding.EncodeToString(out),
			MimeType: "audio/wav",
		}},
	}
}

func (s *Server) callNarrate(ctx context.Context, args map[string]interface{}) *toolsCallResult {
	owner, _ := auth.GetAPIKeyID(ctx)
	ref, err := s.gallery.Narrate(ctx, owner, getStr(args, "text"))
	if err != nil {
		return toolError(err)
	}
	meta := map[string]interface{}{
		"reference_id": ref.ID.String(),
		"url":          ref.URL,
		"mime_type":    ref.MIMEType,
		"size":         ref.Size,
		"duration":     ref.Duration,
		"expires_at":   ref.ExpiresAt.UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.Marshal(meta)
	return &toolsCallResult{Content: []contentItem{{Type: "text", Text: string(metaJSON)}}}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
