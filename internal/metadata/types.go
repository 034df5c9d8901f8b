// Package metadata implements the typed metadata model for workspace
// artifacts: splitting an artifact into its frontmatter block and body,
// decoding the block into a kind-discriminated record, applying partial
// updates, and rewriting the file without touching the body.
//
// Design principles:
// - SRP: types, split/decode, merge, and file rewrite in separate files
// - The body is opaque bytes: the model never parses or normalizes it
// - Updates are pure values; nothing here touches the filesystem except Write
package metadata

import "fmt"

// Kind discriminates the metadata variants.
type Kind string

const (
	KindSpec           Kind = "spec"
	KindImplementation Kind = "implementation"
	KindScratch        Kind = "scratch"
)

// validKinds is the set of recognized artifact kinds.
var validKinds = map[Kind]bool{
	KindSpec:           true,
	KindImplementation: true,
	KindScratch:        true,
}

// ValidateKind returns an error if the kind is not recognized.
func ValidateKind(k Kind) error {
	if !validKinds[k] {
		return fmt.Errorf("invalid artifact kind %q: must be one of: spec, implementation, scratch", k)
	}
	return nil
}

// WorkType categorizes what a scratch pad is for.
type WorkType string

const (
	WorkExploration WorkType = "exploration"
	WorkDesign      WorkType = "design"
	WorkDebug       WorkType = "debug"
	WorkReview      WorkType = "review"
)

// validWorkTypes is the set of recognized scratch work types.
var validWorkTypes = map[WorkType]bool{
	WorkExploration: true,
	WorkDesign:      true,
	WorkDebug:       true,
	WorkReview:      true,
}

// ValidateWorkType returns an error if the work type is not recognized.
func ValidateWorkType(w WorkType) error {
	if !validWorkTypes[w] {
		return fmt.Errorf("invalid work type %q: must be one of: exploration, design, debug, review", w)
	}
	return nil
}

// Identity is the shared identity sub-record carried by every variant.
type Identity struct {
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Version     string   `yaml:"version,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// Spec is the metadata variant for specification artifacts.
type Spec struct {
	Kind                   Kind     `yaml:"kind"`
	Identity               Identity `yaml:",inline"`
	RequiresImplementation bool     `yaml:"requires_implementation,omitempty"`
	Dependencies           []string `yaml:"dependencies,omitempty"`
	References             []string `yaml:"references,omitempty"`
}

// Implementation is the metadata variant for implementation artifacts.
type Implementation struct {
	Kind         Kind     `yaml:"kind"`
	Identity     Identity `yaml:",inline"`
	Spec         string   `yaml:"spec,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	References   []string `yaml:"references,omitempty"`
}

// Scratch is the metadata variant for scratch-pad artifacts.
type Scratch struct {
	Kind       Kind     `yaml:"kind"`
	Identity   Identity `yaml:",inline"`
	Branch     string   `yaml:"branch,omitempty"`
	WorkType   WorkType `yaml:"work_type,omitempty"`
	Target     string   `yaml:"target,omitempty"`
	References []string `yaml:"references,omitempty"`
}

// Metadata is the closed set of variants produced by Decode.
// Exactly one of the pointers is non-nil.
type Metadata struct {
	Spec           *Spec
	Implementation *Implementation
	Scratch        *Scratch
}

// Kind returns the discriminator of the populated variant.
func (m Metadata) Kind() Kind {
	switch {
	case m.Spec != nil:
		return KindSpec
	case m.Implementation != nil:
		return KindImplementation
	case m.Scratch != nil:
		return KindScratch
	}
	return ""
}

// Identity returns the shared identity sub-record of the populated variant.
func (m Metadata) Identity() Identity {
	switch {
	case m.Spec != nil:
		return m.Spec.Identity
	case m.Implementation != nil:
		return m.Implementation.Identity
	case m.Scratch != nil:
		return m.Scratch.Identity
	}
	return Identity{}
}

// Dependencies returns the declared DependsOn targets of the variant.
// Scratch pads declare no dependencies.
func (m Metadata) Dependencies() []string {
	switch {
	case m.Spec != nil:
		return m.Spec.Dependencies
	case m.Implementation != nil:
		return m.Implementation.Dependencies
	}
	return nil
}

// References returns the declared reference targets of the variant.
func (m Metadata) References() []string {
	switch {
	case m.Spec != nil:
		return m.Spec.References
	case m.Implementation != nil:
		return m.Implementation.References
	case m.Scratch != nil:
		return m.Scratch.References
	}
	return nil
}
