package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/templates"
	"github.com/loom-mcp/loom/internal/workspace"
)

// --- Test helpers ---

// setupWorkspace creates a temp dir with an initialized workspace and
// changes cwd to it. Returns the temp dir and a cleanup function.
func setupWorkspace(t *testing.T) (string, func()) {
	t.Helper()
	tmpDir := t.TempDir()

	store := workspace.NewFileStore()
	if _, err := workspace.Init(store, tmpDir, "test-workspace", "A test workspace"); err != nil {
		t.Fatalf("setup: init workspace: %v", err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("setup: getwd: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("setup: chdir: %v", err)
	}

	cleanup := func() {
		_ = os.Chdir(origDir)
	}
	return tmpDir, cleanup
}

// writeArtifact writes a raw artifact file under the workspace dir.
func writeArtifact(t *testing.T, projectRoot, rel, content string) {
	t.Helper()
	abs := filepath.Join(workspace.Path(projectRoot), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func callTool(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

const specArtifact = `---
kind: spec
name: parser
title: Parser
---
# Parser
`

const implArtifact = `---
kind: implementation
name: parser-impl
spec: specs/parser.md
dependencies:
  - specs/parser.md
---
# Parser implementation
`

// --- InitTool ---

func TestInitTool_Handle_Success(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir to tmpDir: %v", err)
	}
	defer func() { _ = os.Chdir(origDir) }()

	tool := NewInitTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"name":        "my-workspace",
		"description": "Specs for my app",
	})

	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "Workspace Initialized") {
		t.Errorf("result should contain 'Workspace Initialized', got: %s", text)
	}
	if !strings.Contains(text, "my-workspace") {
		t.Error("result should contain the workspace name")
	}

	if !workspace.Exists(tmpDir) {
		t.Error("workspace marker should exist after init")
	}
	for _, sub := range []string{"specs", "impl", "scratch", "cache"} {
		if _, err := os.Stat(filepath.Join(tmpDir, workspace.Dir, sub)); err != nil {
			t.Errorf("loom/%s should exist after init: %v", sub, err)
		}
	}
}

func TestInitTool_Handle_MissingName(t *testing.T) {
	tool := NewInitTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"description": "no name",
	})
	if !isErrorResult(result) {
		t.Error("should return error when name is missing")
	}
}

func TestInitTool_Handle_NestedWorkspace(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()

	sub := filepath.Join(tmpDir, "sub", "project")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	tool := NewInitTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"name": "nested",
	})
	if !isErrorResult(result) {
		t.Fatal("should refuse to init inside an existing workspace")
	}
	if !strings.Contains(getResultText(result), "ancestor") {
		t.Errorf("error should mention the ancestor workspace: %s", getResultText(result))
	}
	if _, err := os.Stat(filepath.Join(sub, workspace.Dir)); !os.IsNotExist(err) {
		t.Error("nested init must not create any directories")
	}
}

// --- CreateTool ---

func newCreateTool(t *testing.T) *CreateTool {
	t.Helper()
	renderer, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return NewCreateTool(workspace.NewFileStore(), renderer)
}

func TestCreateTool_Handle_Spec(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()

	tool := newCreateTool(t)
	result := callTool(t, tool.Handle, map[string]interface{}{
		"kind":        "spec",
		"name":        "Payment Flow",
		"title":       "Payment Flow",
		"description": "How payments move through the system",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "specs/payment-flow.md") {
		t.Errorf("result should contain the derived path: %s", getResultText(result))
	}

	abs := filepath.Join(tmpDir, workspace.Dir, "specs", "payment-flow.md")
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("created artifact should exist: %v", err)
	}
	if !strings.Contains(string(data), "kind: spec") {
		t.Error("artifact should carry spec frontmatter")
	}
	if !strings.Contains(string(data), "name: Payment Flow") {
		t.Error("artifact should carry the given name")
	}
}

func TestCreateTool_Handle_ScratchDefaults(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()

	tool := newCreateTool(t)
	result := callTool(t, tool.Handle, map[string]interface{}{
		"kind":   "scratch",
		"name":   "auth-notes",
		"branch": "feature/auth",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	abs := filepath.Join(tmpDir, workspace.Dir, "scratch", "auth-notes.md")
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("created scratch pad should exist: %v", err)
	}
	if !strings.Contains(string(data), "work_type: exploration") {
		t.Error("work_type should default to exploration")
	}
}

func TestCreateTool_Handle_InvalidKind(t *testing.T) {
	_, cleanup := setupWorkspace(t)
	defer cleanup()

	tool := newCreateTool(t)
	result := callTool(t, tool.Handle, map[string]interface{}{
		"kind": "proposal",
		"name": "x",
	})
	if !isErrorResult(result) {
		t.Error("should return error for unknown kind")
	}
}

func TestCreateTool_Handle_NoWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(origDir) }()

	tool := newCreateTool(t)
	result := callTool(t, tool.Handle, map[string]interface{}{
		"kind": "spec",
		"name": "orphan",
	})
	if !isErrorResult(result) {
		t.Fatal("should return error without a workspace")
	}
	if !strings.Contains(getResultText(result), "loom_init_workspace") {
		t.Errorf("error should point at loom_init_workspace: %s", getResultText(result))
	}
}

// --- UpdateTool ---

func TestUpdateTool_Handle_PartialPatch(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)

	tool := NewUpdateTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path":  "specs/parser.md",
		"title": "Parser v2",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, workspace.Dir, "specs", "parser.md"))
	if err != nil {
		t.Fatalf("read updated artifact: %v", err)
	}
	if !strings.Contains(string(data), "title: Parser v2") {
		t.Error("title should be updated")
	}
	if !strings.Contains(string(data), "name: parser") {
		t.Error("omitted fields should be untouched")
	}
	if !strings.Contains(string(data), "# Parser") {
		t.Error("body should be untouched")
	}
}

func TestUpdateTool_Handle_TargetImmutable(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "scratch/notes.md", `---
kind: scratch
name: notes
branch: main
work_type: debug
target: specs/parser.md
---
notes
`)

	tool := NewUpdateTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path":   "scratch/notes.md",
		"target": "specs/other.md",
	})
	if !isErrorResult(result) {
		t.Fatal("rewriting a set target should fail")
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, workspace.Dir, "scratch", "notes.md"))
	if !strings.Contains(string(data), "target: specs/parser.md") {
		t.Error("target should be unchanged after a refused update")
	}
}

func TestUpdateTool_Handle_MissingArtifact(t *testing.T) {
	_, cleanup := setupWorkspace(t)
	defer cleanup()

	tool := NewUpdateTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path":  "specs/absent.md",
		"title": "x",
	})
	if !isErrorResult(result) {
		t.Error("should return error for a missing artifact")
	}
}

// --- DeleteTool ---

func TestDeleteTool_Handle_BlockedWithoutForce(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)
	writeArtifact(t, tmpDir, "impl/parser-impl.md", implArtifact)

	tool := NewDeleteTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path": "specs/parser.md",
	})
	if !isErrorResult(result) {
		t.Fatal("deletion with dependents should be blocked")
	}

	var res struct {
		Deleted bool `json:"deleted"`
		Impact  struct {
			Blocked bool `json:"blocked"`
		} `json:"impact"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &res); err != nil {
		t.Fatalf("blocked result should carry the impact as JSON: %v", err)
	}
	if !res.Impact.Blocked {
		t.Error("impact should report blocked")
	}
	if res.Deleted {
		t.Error("nothing should be deleted")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, workspace.Dir, "specs", "parser.md")); err != nil {
		t.Error("blocked deletion must leave the file in place")
	}
}

func TestDeleteTool_Handle_Force(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)
	writeArtifact(t, tmpDir, "impl/parser-impl.md", implArtifact)

	tool := NewDeleteTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path":  "specs/parser.md",
		"force": true,
	})
	if isErrorResult(result) {
		t.Fatalf("forced deletion should succeed: %s", getResultText(result))
	}
	if _, err := os.Stat(filepath.Join(tmpDir, workspace.Dir, "specs", "parser.md")); !os.IsNotExist(err) {
		t.Error("forced deletion should remove the file")
	}
}

func TestDeleteTool_Handle_DryRun(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)

	tool := NewDeleteTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path":    "specs/parser.md",
		"dry_run": true,
	})
	if isErrorResult(result) {
		t.Fatalf("dry run should succeed: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), `"dry_run": true`) {
		t.Error("result should be marked as a dry run")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, workspace.Dir, "specs", "parser.md")); err != nil {
		t.Error("dry run must not delete anything")
	}
}

// --- StatusTool ---

func TestStatusTool_Handle_CleanWorkspace(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)

	tool := NewStatusTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var report struct {
		OK       bool `json:"ok"`
		Findings []struct {
			Category string `json:"category"`
		} `json:"findings"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("report should be JSON: %v", err)
	}
	if !report.OK {
		t.Errorf("clean workspace should validate, findings: %s", getResultText(result))
	}
}

func TestStatusTool_Handle_DanglingDependency(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", `---
kind: spec
name: parser
dependencies:
  - specs/missing.md
---
body
`)

	tool := NewStatusTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{})

	var report struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("report should be JSON: %v", err)
	}
	if report.OK {
		t.Error("dangling dependency should fail validation")
	}
}

func TestStatusTool_Handle_CategoryToggle(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/a.md", `---
kind: spec
name: a
dependencies:
  - specs/b.md
---
a
`)
	writeArtifact(t, tmpDir, "specs/b.md", `---
kind: spec
name: b
dependencies:
  - specs/a.md
---
b
`)

	tool := NewStatusTool(workspace.NewFileStore())

	result := callTool(t, tool.Handle, map[string]interface{}{})
	if !strings.Contains(getResultText(result), "cycle") {
		t.Error("default run should report the cycle")
	}

	result = callTool(t, tool.Handle, map[string]interface{}{"cycles": false})
	var report struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("report should be JSON: %v", err)
	}
	if !report.OK {
		t.Error("with cycles disabled the workspace should validate")
	}
}

// --- DependencyTreeTool ---

func TestDependencyTreeTool_Handle_Forward(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)
	writeArtifact(t, tmpDir, "impl/parser-impl.md", implArtifact)

	tool := NewDependencyTreeTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path": "impl/parser-impl.md",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var tree struct {
		Root  string   `json:"root"`
		Nodes []string `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &tree); err != nil {
		t.Fatalf("tree should be JSON: %v", err)
	}
	if tree.Root != "impl/parser-impl.md" {
		t.Errorf("root = %s, want impl/parser-impl.md", tree.Root)
	}
	found := false
	for _, n := range tree.Nodes {
		if n == "specs/parser.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("tree should reach specs/parser.md, nodes: %v", tree.Nodes)
	}
}

func TestDependencyTreeTool_Handle_UnknownRoot(t *testing.T) {
	_, cleanup := setupWorkspace(t)
	defer cleanup()

	tool := NewDependencyTreeTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path": "specs/absent.md",
	})
	if !isErrorResult(result) {
		t.Error("should return error for unknown root")
	}
}

func TestDependencyTreeTool_Handle_UnknownEdgeKind(t *testing.T) {
	_, cleanup := setupWorkspace(t)
	defer cleanup()

	tool := NewDependencyTreeTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path":  "specs/parser.md",
		"kinds": "depends_on,bogus",
	})
	if !isErrorResult(result) {
		t.Error("should return error for unknown edge kind")
	}
}

// --- DeletionImpactTool ---

func TestDeletionImpactTool_Handle(t *testing.T) {
	tmpDir, cleanup := setupWorkspace(t)
	defer cleanup()
	writeArtifact(t, tmpDir, "specs/parser.md", specArtifact)
	writeArtifact(t, tmpDir, "impl/parser-impl.md", implArtifact)

	tool := NewDeletionImpactTool(workspace.NewFileStore())
	result := callTool(t, tool.Handle, map[string]interface{}{
		"path": "specs/parser.md",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var impact struct {
		Blocked bool `json:"blocked"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &impact); err != nil {
		t.Fatalf("impact should be JSON: %v", err)
	}
	if !impact.Blocked {
		t.Error("artifact with dependents should be blocked")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, workspace.Dir, "specs", "parser.md")); err != nil {
		t.Error("impact analysis must not mutate the workspace")
	}
}

// --- splitList ---

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{",a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
