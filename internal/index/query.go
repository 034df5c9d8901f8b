package index

// Query helpers over a built index. All of them are read-only; the index
// is never mutated after Scan.

// Artifact looks up a record by its ID (workspace-relative path).
func (idx *Index) Artifact(id ArtifactID) (*ArtifactRecord, bool) {
	rec, ok := idx.Artifacts[id]
	return rec, ok
}

// Resolve looks a target up first as an ID, then as a declared name.
func (idx *Index) Resolve(target string) (*ArtifactRecord, bool) {
	if rec, ok := idx.Artifacts[ArtifactID(target)]; ok {
		return rec, true
	}
	if id, ok := idx.ByName[target]; ok {
		return idx.Artifacts[id], true
	}
	return nil, false
}

// EdgesFrom returns the ordered edges whose source is id, optionally
// filtered by kind (empty kind = all kinds).
func (idx *Index) EdgesFrom(id ArtifactID, kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range idx.Edges {
		if e.Source != id {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EdgesTo returns the ordered edges whose target resolves to id,
// optionally filtered by kind. External edges never match.
func (idx *Index) EdgesTo(id ArtifactID, kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range idx.Edges {
		if e.External || ArtifactID(e.Target) != id {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EdgesOfKind returns the ordered edges of one kind.
func (idx *Index) EdgesOfKind(kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range idx.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ResolveConstraint looks up a constraint anchor by its identifier.
func (idx *Index) ResolveConstraint(id ConstraintID) (*ConstraintRecord, bool) {
	rec, ok := idx.Constraints[id]
	return rec, ok
}

// DanglingEdges returns the edges whose workspace target does not resolve
// to any indexed artifact. External targets are never dangling here; the
// validation engine owns their well-formedness and reachability.
func (idx *Index) DanglingEdges() []Edge {
	var out []Edge
	for _, e := range idx.Edges {
		if e.External {
			continue
		}
		if _, ok := idx.Artifacts[ArtifactID(e.Target)]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// Implementers returns the IDs of implementation artifacts linked to the
// given spec by an Implements or DependsOn edge.
func (idx *Index) Implementers(spec ArtifactID) []ArtifactID {
	seen := make(map[ArtifactID]bool)
	var out []ArtifactID
	for _, e := range idx.Edges {
		if e.External || ArtifactID(e.Target) != spec {
			continue
		}
		if e.Kind != EdgeImplements && e.Kind != EdgeDependsOn {
			continue
		}
		src, ok := idx.Artifacts[e.Source]
		if !ok || src.Kind != KindImplementation || seen[e.Source] {
			continue
		}
		seen[e.Source] = true
		out = append(out, e.Source)
	}
	return out
}
