package blocklist

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "feedhider-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	m, _ := testManager(t)

	srv := mcp.NewServer(testImpl, nil)
	m.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): no content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCP_AddListRemove(t *testing.T) {
	session := mcpSession(t)

	if _, isErr := callTool(t, session, "feedhider_add", map[string]any{"name": "Foo"}); isErr {
		t.Fatal("add: tool error")
	}
	if _, isErr := callTool(t, session, "feedhider_add", map[string]any{"name": "FOO"}); !isErr {
		t.Error("duplicate add: expected tool error")
	}

	text, _ := callTool(t, session, "feedhider_list", map[string]any{})
	var snap Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !snap.Enabled || len(snap.List) != 1 || snap.List[0].Name != "Foo" {
		t.Errorf("list: got %+v", snap)
	}

	if _, isErr := callTool(t, session, "feedhider_remove", map[string]any{"name": "Foo"}); isErr {
		t.Error("remove: tool error")
	}
	if _, isErr := callTool(t, session, "feedhider_remove", map[string]any{"name": "Foo"}); !isErr {
		t.Error("remove missing: expected tool error")
	}
}

func TestMCP_SetEnabled(t *testing.T) {
	session := mcpSession(t)

	callTool(t, session, "feedhider_set_enabled", map[string]any{"enabled": false})
	text, _ := callTool(t, session, "feedhider_list", map[string]any{})
	var snap Snapshot
	json.Unmarshal([]byte(text), &snap)
	if snap.Enabled {
		t.Error("after set_enabled false: got enabled")
	}
}
