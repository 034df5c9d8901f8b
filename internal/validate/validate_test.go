package validate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loom-mcp/loom/internal/index"
)

// --- Index fixtures built directly ---

func emptyIndex() *index.Index {
	return &index.Index{
		Artifacts:   make(map[index.ArtifactID]*index.ArtifactRecord),
		ByName:      make(map[string]index.ArtifactID),
		Headings:    make(map[string]*index.HeadingRecord),
		Constraints: make(map[index.ConstraintID]*index.ConstraintRecord),
	}
}

func addArtifact(idx *index.Index, id string, kind index.EntityKind) *index.ArtifactRecord {
	rec := &index.ArtifactRecord{ID: index.ArtifactID(id), Kind: kind, Name: id}
	idx.Artifacts[rec.ID] = rec
	idx.ByName[id] = rec.ID
	return rec
}

func addEdge(idx *index.Index, kind index.EdgeKind, src, dst string) {
	idx.Edges = append(idx.Edges, index.Edge{
		Kind:     kind,
		Source:   index.ArtifactID(src),
		Target:   dst,
		External: index.IsExternalTarget(dst),
	})
}

func findingsIn(r *Report, c Category) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// --- Cycles ---

func TestRun_CycleFatalWhenEnabled(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "x", index.KindSpecification)
	addArtifact(idx, "y", index.KindSpecification)
	addEdge(idx, index.EdgeDependsOn, "x", "y")
	addEdge(idx, index.EdgeDependsOn, "y", "x")

	r := Run(idx, Config{Cycles: true})
	got := findingsIn(r, CategoryCycles)
	if len(got) != 1 || got[0].Severity != SeverityFatal {
		t.Fatalf("cycle findings = %+v, want one fatal", got)
	}
	members := strings.Join(got[0].Identifiers, ",")
	if !strings.Contains(members, "x") || !strings.Contains(members, "y") {
		t.Errorf("cycle finding must name both x and y: %v", got[0].Identifiers)
	}
	if r.OK {
		t.Error("report OK despite fatal cycle finding")
	}

	// Same workspace with cycles disabled: no such finding.
	r = Run(idx, Config{Structure: true, References: false})
	if len(findingsIn(r, CategoryCycles)) != 0 {
		t.Error("disabled category produced findings")
	}
}

// --- Structure ---

func TestRun_StructureFindings(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	idx.ParseFailures = append(idx.ParseFailures, index.ParseFailure{
		Path: "specs/broken.md", Message: "missing delimiter",
	})
	idx.DuplicateNames = append(idx.DuplicateNames, index.Duplicate{
		Identifier: "parser", Winner: "specs/a.md", Loser: "specs/z.md",
	})
	addEdge(idx, index.EdgeDependsOn, "specs/a.md", "specs/missing.md")

	r := Run(idx, Config{Structure: true})
	got := findingsIn(r, CategoryStructure)
	if len(got) != 3 {
		t.Fatalf("structure findings = %+v, want 3", got)
	}
	if r.OK {
		t.Error("report OK despite fatal structure findings")
	}
}

// --- References: syntax only ---

func TestRun_ReferencesSyntaxOnly(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	addEdge(idx, index.EdgeReferences, "specs/a.md", "https://example.com/doc")

	r := Run(idx, Config{References: true})
	if got := findingsIn(r, CategoryReferences); len(got) != 0 {
		t.Errorf("well-formed URL produced findings in syntax-only mode: %+v", got)
	}
	if !r.OK {
		t.Error("report not OK")
	}
}

func TestRun_ReferencesMalformedURL(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	idx.Edges = append(idx.Edges, index.Edge{
		Kind: index.EdgeReferences, Source: "specs/a.md",
		Target: "https://exa mple.com/%zz", External: true,
	})

	r := Run(idx, Config{References: true})
	got := findingsIn(r, CategoryReferences)
	if len(got) != 1 || got[0].Severity != SeverityFatal {
		t.Fatalf("findings = %+v, want one fatal", got)
	}
}

func TestRun_ReferencesSelfEdgeWarning(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	addEdge(idx, index.EdgeDependsOn, "specs/a.md", "specs/a.md")

	r := Run(idx, Config{References: true})
	got := findingsIn(r, CategoryReferences)
	if len(got) != 1 || got[0].Severity != SeverityWarning {
		t.Fatalf("findings = %+v, want one warning", got)
	}
	if !r.OK {
		t.Error("warnings alone must not fail the report")
	}
}

// --- References: reachability ---

func TestRun_ReachabilityOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	addEdge(idx, index.EdgeReferences, "specs/a.md", srv.URL)

	r := Run(idx, Config{References: true, Reachability: &ProbeConfig{Timeout: 2 * time.Second}})
	if got := findingsIn(r, CategoryReferences); len(got) != 0 {
		t.Errorf("reachable reference produced findings: %+v", got)
	}
}

func TestRun_ReachabilityUnreachableIsOneWarning(t *testing.T) {
	// A server that is already closed: connection refused immediately.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead := srv.URL
	srv.Close()

	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	addArtifact(idx, "specs/b.md", index.KindSpecification)
	addEdge(idx, index.EdgeReferences, "specs/a.md", dead)
	addEdge(idx, index.EdgeReferences, "specs/b.md", dead)

	r := Run(idx, Config{References: true, Reachability: &ProbeConfig{Timeout: time.Second}})
	got := findingsIn(r, CategoryReferences)
	if len(got) != 1 {
		t.Fatalf("findings = %+v, want exactly one (distinct URL probed once)", got)
	}
	if got[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", got[0].Severity)
	}
	if r.OK != true {
		t.Error("reachability failure must stay non-fatal")
	}

	// Same workspace, syntax-only: zero findings for that reference.
	r = Run(idx, Config{References: true})
	if got := findingsIn(r, CategoryReferences); len(got) != 0 {
		t.Errorf("syntax-only mode probed the network? %+v", got)
	}
}

func TestRun_ReachabilityRedirectBudget(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)
	addEdge(idx, index.EdgeReferences, "specs/a.md", srv.URL)

	r := Run(idx, Config{References: true, Reachability: &ProbeConfig{
		Timeout: 2 * time.Second, MaxRedirects: 3,
	}})
	got := findingsIn(r, CategoryReferences)
	if len(got) != 1 || got[0].Severity != SeverityWarning {
		t.Fatalf("findings = %+v, want one warning for exhausted redirects", got)
	}
}

// --- Compliance ---

func TestRun_ComplianceImplementationRules(t *testing.T) {
	idx := emptyIndex()
	noPtr := addArtifact(idx, "impl/a.md", index.KindImplementation)
	noPtr.SpecPointer = ""
	bad := addArtifact(idx, "impl/b.md", index.KindImplementation)
	bad.SpecPointer = "specs/missing.md"

	r := Run(idx, Config{Compliance: true})
	got := findingsIn(r, CategoryCompliance)
	if len(got) != 2 {
		t.Fatalf("findings = %+v, want 2", got)
	}
	for _, f := range got {
		if f.Severity != SeverityFatal {
			t.Errorf("severity = %s, want fatal: %+v", f.Severity, f)
		}
	}
}

func TestRun_ComplianceRequiresImplementation(t *testing.T) {
	idx := emptyIndex()
	spec := addArtifact(idx, "specs/a.md", index.KindSpecification)
	spec.RequiresImplementation = true

	r := Run(idx, Config{Compliance: true})
	got := findingsIn(r, CategoryCompliance)
	if len(got) != 1 || got[0].Severity != SeverityWarning {
		t.Fatalf("findings = %+v, want one warning", got)
	}

	// Linking an implementation clears the finding.
	impl := addArtifact(idx, "impl/a-go.md", index.KindImplementation)
	impl.SpecPointer = "specs/a.md"
	addEdge(idx, index.EdgeImplements, "impl/a-go.md", "specs/a.md")

	r = Run(idx, Config{Compliance: true})
	if got := findingsIn(r, CategoryCompliance); len(got) != 0 {
		t.Errorf("satisfied spec still flagged: %+v", got)
	}
}

// --- Scratch pads ---

func TestRun_ScratchPadRules(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "specs/a.md", index.KindSpecification)

	bare := addArtifact(idx, "scratch/bare.md", index.KindScratchPad)
	bare.Branch = ""
	bare.WorkType = ""

	odd := addArtifact(idx, "scratch/odd.md", index.KindScratchPad)
	odd.Branch = "feat/x"
	odd.WorkType = "speculation"
	odd.ScratchTarget = "specs/missing.md"

	good := addArtifact(idx, "scratch/good.md", index.KindScratchPad)
	good.Branch = "feat/y"
	good.WorkType = "debug"
	good.ScratchTarget = "specs/a.md"

	r := Run(idx, Config{ScratchPads: true})
	got := findingsIn(r, CategoryScratchPads)
	if len(got) != 4 {
		t.Fatalf("findings = %+v, want 4 (missing branch, missing work type, bad work type, bad target)", got)
	}
	for _, f := range got {
		for _, id := range f.Identifiers {
			if id == "scratch/good.md" {
				t.Errorf("valid scratch pad flagged: %+v", f)
			}
		}
	}
}

// --- Report shape ---

func TestRun_DisabledCategoriesContributeNothing(t *testing.T) {
	idx := emptyIndex()
	addArtifact(idx, "impl/a.md", index.KindImplementation) // no spec pointer
	addEdge(idx, index.EdgeDependsOn, "impl/a.md", "impl/a.md")

	r := Run(idx, Config{})
	if len(r.Findings) != 0 {
		t.Errorf("findings with everything disabled: %+v", r.Findings)
	}
	if !r.OK {
		t.Error("empty config must report OK")
	}
	if r.ID == "" || r.GeneratedAt == "" {
		t.Error("report missing run metadata")
	}
}
