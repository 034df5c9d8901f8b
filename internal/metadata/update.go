package metadata

import "fmt"

// Update records mirror the metadata variants with every field optional.
// A nil field leaves the current value unchanged; a non-nil field replaces
// it wholesale. Applying an update is a pure function of two values, and
// applying the same update twice equals applying it once.

// IdentityUpdate is a partial patch of the shared identity sub-record.
type IdentityUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Version     *string   `json:"version,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// SpecUpdate is a partial patch of a Spec record.
type SpecUpdate struct {
	Identity               IdentityUpdate `json:"identity,omitempty"`
	RequiresImplementation *bool          `json:"requires_implementation,omitempty"`
	Dependencies           *[]string      `json:"dependencies,omitempty"`
	References             *[]string      `json:"references,omitempty"`
}

// ImplementationUpdate is a partial patch of an Implementation record.
type ImplementationUpdate struct {
	Identity     IdentityUpdate `json:"identity,omitempty"`
	Spec         *string        `json:"spec,omitempty"`
	Dependencies *[]string      `json:"dependencies,omitempty"`
	References   *[]string      `json:"references,omitempty"`
}

// ScratchUpdate is a partial patch of a Scratch record.
type ScratchUpdate struct {
	Identity   IdentityUpdate `json:"identity,omitempty"`
	Branch     *string        `json:"branch,omitempty"`
	WorkType   *WorkType      `json:"work_type,omitempty"`
	Target     *string        `json:"target,omitempty"`
	References *[]string      `json:"references,omitempty"`
}

// Update is the kind-discriminated union of patch records. Exactly one of
// the pointers should be non-nil, matching the variant it patches.
type Update struct {
	Spec           *SpecUpdate           `json:"spec,omitempty"`
	Implementation *ImplementationUpdate `json:"implementation,omitempty"`
	Scratch        *ScratchUpdate        `json:"scratch,omitempty"`
}

// overwrite replaces dst with *src when src is present.
// The merge rule is identical for every field of every variant.
func overwrite[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// mergeIdentity applies an identity patch field by field.
func mergeIdentity(cur Identity, u IdentityUpdate) Identity {
	overwrite(&cur.Name, u.Name)
	overwrite(&cur.Title, u.Title)
	overwrite(&cur.Description, u.Description)
	overwrite(&cur.Version, u.Version)
	overwrite(&cur.Tags, u.Tags)
	return cur
}

// Apply merges an update into current metadata and returns the result.
// The update's variant must match the current kind; a mismatch is an
// error, never a silent kind change. A Scratch patch may not overwrite a
// non-empty target: the target is immutable once set.
func Apply(current Metadata, u Update) (Metadata, error) {
	switch {
	case current.Spec != nil:
		if u.Spec == nil {
			if u.Implementation != nil || u.Scratch != nil {
				return Metadata{}, fmt.Errorf("update kind mismatch: artifact is a spec")
			}
			return current, nil
		}
		s := *current.Spec
		s.Identity = mergeIdentity(s.Identity, u.Spec.Identity)
		overwrite(&s.RequiresImplementation, u.Spec.RequiresImplementation)
		overwrite(&s.Dependencies, u.Spec.Dependencies)
		overwrite(&s.References, u.Spec.References)
		return Metadata{Spec: &s}, nil

	case current.Implementation != nil:
		if u.Implementation == nil {
			if u.Spec != nil || u.Scratch != nil {
				return Metadata{}, fmt.Errorf("update kind mismatch: artifact is an implementation")
			}
			return current, nil
		}
		i := *current.Implementation
		i.Identity = mergeIdentity(i.Identity, u.Implementation.Identity)
		overwrite(&i.Spec, u.Implementation.Spec)
		overwrite(&i.Dependencies, u.Implementation.Dependencies)
		overwrite(&i.References, u.Implementation.References)
		return Metadata{Implementation: &i}, nil

	case current.Scratch != nil:
		if u.Scratch == nil {
			if u.Spec != nil || u.Implementation != nil {
				return Metadata{}, fmt.Errorf("update kind mismatch: artifact is a scratch pad")
			}
			return current, nil
		}
		sc := *current.Scratch
		if u.Scratch.Target != nil && sc.Target != "" && *u.Scratch.Target != sc.Target {
			return Metadata{}, fmt.Errorf("scratch target is immutable once set (current %q)", sc.Target)
		}
		sc.Identity = mergeIdentity(sc.Identity, u.Scratch.Identity)
		overwrite(&sc.Branch, u.Scratch.Branch)
		if u.Scratch.WorkType != nil {
			if err := ValidateWorkType(*u.Scratch.WorkType); err != nil {
				return Metadata{}, err
			}
			sc.WorkType = *u.Scratch.WorkType
		}
		overwrite(&sc.Target, u.Scratch.Target)
		overwrite(&sc.References, u.Scratch.References)
		return Metadata{Scratch: &sc}, nil
	}
	return Metadata{}, &ParseError{Reason: "empty metadata value"}
}
