package mcp

// Tool is one JSON-RPC tool descriptor, returned from tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// AllTools returns the five tool descriptors named in section 6.3, in a
// fixed order.
func AllTools() []Tool {
	return []Tool{
		{
			Name:        "index",
			Description: "Index directories for semantic search",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"directory_path": map[string]any{
						"type":        "string",
						"description": "Path to directory to index (or comma-separated paths)",
					},
				},
				"required": []string{"directory_path"},
			},
		},
		{
			Name:        "search",
			Description: "Search indexed content semantically",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":           map[string]any{"type": "string", "description": "Search query"},
					"directory_path":  map[string]any{"type": "string", "description": "Optional directory to scope search to"},
					"limit":           map[string]any{"type": "integer", "description": "Maximum number of results to return", "default": 10},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "similar_files",
			Description: "Find files similar to a given file",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "description": "Path to the reference file"},
					"limit":     map[string]any{"type": "integer", "description": "Maximum number of similar files to return", "default": 10},
				},
				"required": []string{"file_path"},
			},
		},
		{
			Name:        "get_content",
			Description: "Get file content with optional chunk selection",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "description": "Path to the file"},
					"chunks":    map[string]any{"type": "string", "description": "Optional chunk range (e.g., '2-5')"},
				},
				"required": []string{"file_path"},
			},
		},
		{
			Name:        "server_info",
			Description: "Get server information (version, embedding model, collection)",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}
