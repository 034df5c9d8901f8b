// Package validate implements the multi-category validation pass over a
// workspace index: structural integrity, reference resolution, cycle
// freedom, kind-specific compliance, and scratch-pad lifecycle rules.
// Categories are independently selectable; disabled categories contribute
// nothing to the report.
package validate

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/loom-mcp/loom/internal/graph"
	"github.com/loom-mcp/loom/internal/index"
)

// Category names one validation check family.
type Category string

const (
	CategoryStructure   Category = "structure"
	CategoryReferences  Category = "references"
	CategoryCycles      Category = "cycles"
	CategoryCompliance  Category = "compliance"
	CategoryScratchPads Category = "scratchpads"
)

// Severity grades a finding. Only fatal findings fail the run.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result: what check fired, how bad it is,
// and which identifiers are implicated.
type Finding struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Identifiers []string `json:"identifiers,omitempty"`
}

// Config selects the categories to run. Reachability applies only when
// References is enabled; nil means syntax-only reference checking.
type Config struct {
	Structure    bool         `json:"structure"`
	References   bool         `json:"references"`
	Cycles       bool         `json:"cycles"`
	Compliance   bool         `json:"compliance"`
	ScratchPads  bool         `json:"scratchpads"`
	Reachability *ProbeConfig `json:"reachability,omitempty"`
}

// AllChecks enables every category with syntax-only references.
func AllChecks() Config {
	return Config{Structure: true, References: true, Cycles: true, Compliance: true, ScratchPads: true}
}

// Report is the ordered outcome of one validation run.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt string    `json:"generated_at"`
	Artifacts   int       `json:"artifacts"`
	Findings    []Finding `json:"findings"`
	// OK is true when no enabled category produced a fatal finding.
	OK bool `json:"ok"`
}

// Run executes the enabled checks over a scanned index and returns the
// report. No check aborts the run; every enabled category always gets
// its turn.
func Run(idx *index.Index, cfg Config) *Report {
	r := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Artifacts:   len(idx.Artifacts),
	}

	if cfg.Structure {
		r.Findings = append(r.Findings, checkStructure(idx)...)
	}
	if cfg.References {
		r.Findings = append(r.Findings, checkReferences(idx, cfg.Reachability)...)
	}
	if cfg.Cycles {
		r.Findings = append(r.Findings, checkCycles(idx)...)
	}
	if cfg.Compliance {
		r.Findings = append(r.Findings, checkCompliance(idx)...)
	}
	if cfg.ScratchPads {
		r.Findings = append(r.Findings, checkScratchPads(idx)...)
	}

	r.OK = true
	for _, f := range r.Findings {
		if f.Severity == SeverityFatal {
			r.OK = false
			break
		}
	}
	return r
}

// --- structure: index integrity ---

func checkStructure(idx *index.Index) []Finding {
	var out []Finding
	for _, pf := range idx.ParseFailures {
		out = append(out, Finding{
			Category: CategoryStructure, Severity: SeverityFatal,
			Message:     fmt.Sprintf("artifact could not be parsed: %s", pf.Message),
			Identifiers: []string{pf.Path},
		})
	}
	for _, d := range idx.DuplicateNames {
		out = append(out, Finding{
			Category: CategoryStructure, Severity: SeverityFatal,
			Message:     fmt.Sprintf("artifact name %q declared by multiple artifacts", d.Identifier),
			Identifiers: []string{string(d.Winner), string(d.Loser)},
		})
	}
	for _, d := range idx.DuplicateHeadings {
		out = append(out, Finding{
			Category: CategoryStructure, Severity: SeverityWarning,
			Message:     fmt.Sprintf("heading %q appears more than once", d.Identifier),
			Identifiers: []string{string(d.Loser)},
		})
	}
	for _, d := range idx.DuplicateConstraints {
		out = append(out, Finding{
			Category: CategoryStructure, Severity: SeverityFatal,
			Message:     fmt.Sprintf("constraint %q anchored in multiple artifacts", d.Identifier),
			Identifiers: []string{string(d.Winner), string(d.Loser)},
		})
	}
	for _, e := range idx.DanglingEdges() {
		out = append(out, Finding{
			Category: CategoryStructure, Severity: SeverityFatal,
			Message:     fmt.Sprintf("%s edge target %q does not resolve to any artifact", e.Kind, e.Target),
			Identifiers: []string{string(e.Source), e.Target},
		})
	}
	return out
}

// --- references: resolution, well-formedness, optional reachability ---

func checkReferences(idx *index.Index, probe *ProbeConfig) []Finding {
	var out []Finding
	externals := make(map[string][]string) // url → sources, deduped for probing
	for _, e := range idx.Edges {
		if !e.External {
			if _, ok := idx.Artifacts[index.ArtifactID(e.Target)]; !ok {
				out = append(out, Finding{
					Category: CategoryReferences, Severity: SeverityFatal,
					Message:     fmt.Sprintf("%s target %q does not resolve", e.Kind, e.Target),
					Identifiers: []string{string(e.Source), e.Target},
				})
			}
			if e.Source == index.ArtifactID(e.Target) {
				out = append(out, Finding{
					Category: CategoryReferences, Severity: SeverityWarning,
					Message:     "artifact declares a relationship to itself",
					Identifiers: []string{string(e.Source)},
				})
			}
			continue
		}
		u, err := url.Parse(e.Target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			out = append(out, Finding{
				Category: CategoryReferences, Severity: SeverityFatal,
				Message:     fmt.Sprintf("external reference %q is not a well-formed URL", e.Target),
				Identifiers: []string{string(e.Source), e.Target},
			})
			continue
		}
		externals[e.Target] = append(externals[e.Target], string(e.Source))
	}

	if probe != nil {
		out = append(out, probeAll(externals, *probe)...)
	}
	return out
}

// --- cycles: full-graph detection via the graph engine ---

func checkCycles(idx *index.Index) []Finding {
	var out []Finding
	for _, cycle := range graph.New(idx, nil).AllCycles() {
		ids := make([]string, len(cycle))
		for i, n := range cycle {
			ids[i] = string(n)
		}
		out = append(out, Finding{
			Category: CategoryCycles, Severity: SeverityFatal,
			Message:     fmt.Sprintf("dependency cycle through %d artifact(s)", len(cycle)),
			Identifiers: ids,
		})
	}
	return out
}

// --- compliance: kind-specific rules ---

func checkCompliance(idx *index.Index) []Finding {
	var out []Finding
	for _, id := range sortedArtifacts(idx) {
		rec := idx.Artifacts[id]
		switch rec.Kind {
		case index.KindImplementation:
			if rec.SpecPointer == "" {
				out = append(out, Finding{
					Category: CategoryCompliance, Severity: SeverityFatal,
					Message:     "implementation does not declare a spec pointer",
					Identifiers: []string{string(id)},
				})
			} else if _, ok := idx.Resolve(rec.SpecPointer); !ok {
				out = append(out, Finding{
					Category: CategoryCompliance, Severity: SeverityFatal,
					Message:     fmt.Sprintf("implementation spec pointer %q does not resolve", rec.SpecPointer),
					Identifiers: []string{string(id), rec.SpecPointer},
				})
			}
		case index.KindSpecification:
			if rec.RequiresImplementation && len(idx.Implementers(id)) == 0 {
				out = append(out, Finding{
					Category: CategoryCompliance, Severity: SeverityWarning,
					Message:     "specification requires an implementation but none is linked",
					Identifiers: []string{string(id)},
				})
			}
		}
	}
	return out
}

// --- scratchpads: lifecycle rules ---

func checkScratchPads(idx *index.Index) []Finding {
	var out []Finding
	for _, id := range sortedArtifacts(idx) {
		rec := idx.Artifacts[id]
		if rec.Kind != index.KindScratchPad {
			continue
		}
		if rec.Branch == "" {
			out = append(out, Finding{
				Category: CategoryScratchPads, Severity: SeverityFatal,
				Message:     "scratch pad does not declare a branch",
				Identifiers: []string{string(id)},
			})
		}
		if rec.WorkType == "" {
			out = append(out, Finding{
				Category: CategoryScratchPads, Severity: SeverityFatal,
				Message:     "scratch pad does not declare a work type",
				Identifiers: []string{string(id)},
			})
		} else if !recognizedWorkType(rec.WorkType) {
			out = append(out, Finding{
				Category: CategoryScratchPads, Severity: SeverityFatal,
				Message:     fmt.Sprintf("scratch pad work type %q is not recognized", rec.WorkType),
				Identifiers: []string{string(id)},
			})
		}
		if rec.ScratchTarget != "" && !index.IsExternalTarget(rec.ScratchTarget) {
			if _, ok := idx.Resolve(rec.ScratchTarget); !ok {
				out = append(out, Finding{
					Category: CategoryScratchPads, Severity: SeverityFatal,
					Message:     fmt.Sprintf("scratch pad target %q does not resolve", rec.ScratchTarget),
					Identifiers: []string{string(id), rec.ScratchTarget},
				})
			}
		}
	}
	return out
}

func recognizedWorkType(w string) bool {
	switch w {
	case "exploration", "design", "debug", "review":
		return true
	}
	return false
}

func sortedArtifacts(idx *index.Index) []index.ArtifactID {
	out := make([]index.ArtifactID, 0, len(idx.Artifacts))
	for id := range idx.Artifacts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
