package docpipe

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docharvest/idgen"
	"github.com/hazyhaar/docharvest/kit"
)

// RegisterMCP registers docharvest tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerDetectTool(srv)
	p.registerFormatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (p *Pipeline) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.RequestIDMiddleware(), kit.LoggingMiddleware(p.logger, name))(ep)
}

// runDirs returns per-request artifact directories named after the request
// ID. Caller-supplied IDs that are not canonical UUIDs are replaced.
func (p *Pipeline) runDirs(ctx context.Context) (string, string) {
	id := kit.GetRequestID(ctx)
	if !idgen.Valid(id) {
		id = kit.NewRequestID()
	}
	return filepath.Join(p.cfg.ImageDir, id), filepath.Join(p.cfg.TableDir, id)
}

// --- extract ---

type extractReq struct {
	Path string `json:"path"`
}

func (p *Pipeline) extractEndpoint() kit.Endpoint {
	return p.endpoint("extract", func(ctx context.Context, req any) (any, error) {
		r := req.(*extractReq)
		path, err := p.resolve(r.Path)
		if err != nil {
			return nil, err
		}
		imageDir, tableDir := p.runDirs(ctx)
		return p.ExtractInto(ctx, path, imageDir, tableDir)
	})
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docharvest_extract",
		Description: "Extract text, headings, font styles, links, images and tables from a pdf, docx or pptx file.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to extract"},
		}, []string{"path"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r extractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, p.extractEndpoint(), decode)
}

// --- detect ---

type detectReq struct {
	Path string `json:"path"`
}

func (p *Pipeline) detectEndpoint() kit.Endpoint {
	return p.endpoint("detect", func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		path, err := p.resolve(r.Path)
		if err != nil {
			return nil, err
		}
		kind, err := p.Detect(path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": string(kind)}, nil
	})
}

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docharvest_detect",
		Description: "Detect the kind of a document file from its extension.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to detect"},
		}, []string{"path"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r detectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, p.detectEndpoint(), decode)
}

// --- formats ---

func formatsEndpoint(_ context.Context, _ any) (any, error) {
	kinds := SupportedKinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return map[string]any{"formats": names}, nil
}

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docharvest_formats",
		Description: "List all supported document formats.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, p.endpoint("formats", formatsEndpoint), decode)
}
