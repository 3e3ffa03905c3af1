package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/siteservice"
	"github.com/starford/ansuz/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}

	svc := siteservice.New(store, nil, nil, 0)
	return New(svc), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
	case "read_post":
		result, err = srv.readPost(ctx, req)
	case "create_post":
		result, err = srv.createPost(ctx, req)
	case "rebuild_registry":
		result, err = srv.rebuildRegistry(ctx, req)
	case "get_post_contract":
		result, err = srv.getPostContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateRebuildRead(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_post", map[string]interface{}{
		"title": "From MCP",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") || !strings.HasSuffix(text, "-from-mcp.md") {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "rebuild_registry", map[string]interface{}{})
	if !strings.Contains(resultText(r), "registry rebuilt: 1 post(s)") {
		t.Errorf("rebuild result = %q", resultText(r))
	}

	slug := strings.TrimSuffix(strings.TrimPrefix(text, "created: "), ".md")
	r = callTool(t, srv, "read_post", map[string]interface{}{"slug": slug})
	if !strings.Contains(resultText(r), `"title": "From MCP"`) {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestListPosts(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("a.md", []byte("---\ntitle: A\ndate: 2024-01-01\ntags: [go]\n---\nx\n"))
	_ = store.Write("b.md", []byte("---\ntitle: B\ndate: 2024-01-02\n---\nx\n"))
	_ = callTool(t, srv, "rebuild_registry", map[string]interface{}{})

	r := callTool(t, srv, "list_posts", map[string]interface{}{})
	if !strings.Contains(resultText(r), "2024-01-02-b") {
		t.Errorf("list result = %q", resultText(r))
	}

	r = callTool(t, srv, "list_posts", map[string]interface{}{"tag": "go"})
	text := resultText(r)
	if !strings.Contains(text, "2024-01-01-a") || strings.Contains(text, "2024-01-02-b") {
		t.Errorf("filtered list = %q", text)
	}
}

func TestReadPostMissing(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "rebuild_registry", map[string]interface{}{})
	r := callTool(t, srv, "read_post", map[string]interface{}{"slug": "2099-01-01-nope"})
	if !r.IsError {
		t.Error("expected error for missing post")
	}
}

func TestRebuildReportsErrors(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("bad.md", []byte("---\ndate: 2024-01-01\n---\nno title\n"))

	r := callTool(t, srv, "rebuild_registry", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error result for broken corpus")
	}
	if !strings.Contains(resultText(r), "bad.md") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestGetPostContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_post_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Post Format Contract") {
		t.Error("contract text missing")
	}
}
