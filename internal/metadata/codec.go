package metadata

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the frontmatter fence line.
const Delimiter = "---"

// ParseError reports a malformed metadata block. It is recoverable:
// callers scanning a whole workspace collect it per-artifact instead of
// aborting the scan.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "metadata parse error: " + e.Reason
}

// Split separates an artifact's content into its raw metadata block and
// its body. The content must start with a delimiter line; the block runs
// until the next delimiter line; the body is everything after that line's
// newline, preserved byte-for-byte (including any delimiter-like text
// inside it).
func Split(content string) (block, body string, err error) {
	rest, ok := strings.CutPrefix(content, Delimiter+"\n")
	if !ok {
		// Tolerate CRLF and a bare "---" with no trailing content.
		if rest, ok = strings.CutPrefix(content, Delimiter+"\r\n"); !ok {
			return "", "", &ParseError{Reason: "missing leading '---' delimiter"}
		}
	}

	// Find the closing delimiter on its own line.
	if after, found := strings.CutPrefix(rest, Delimiter+"\n"); found {
		return "", after, nil // empty metadata block
	}
	idx := strings.Index(rest, "\n"+Delimiter+"\n")
	if idx < 0 {
		// Closing delimiter at end of file with no body.
		if strings.HasSuffix(rest, "\n"+Delimiter) {
			return strings.TrimSuffix(rest, "\n"+Delimiter), "", nil
		}
		return "", "", &ParseError{Reason: "missing closing '---' delimiter"}
	}
	block = rest[:idx+1] // keep the block's final newline
	body = rest[idx+1+len(Delimiter)+1:]
	return block, body, nil
}

// Decode parses a raw metadata block into its kind-discriminated variant.
// An unknown or missing kind is a ParseError, never a silent default.
func Decode(block string) (Metadata, error) {
	var probe struct {
		Kind Kind `yaml:"kind"`
	}
	if err := yaml.Unmarshal([]byte(block), &probe); err != nil {
		return Metadata{}, &ParseError{Reason: fmt.Sprintf("undecodable metadata: %v", err)}
	}
	if err := ValidateKind(probe.Kind); err != nil {
		return Metadata{}, &ParseError{Reason: err.Error()}
	}

	switch probe.Kind {
	case KindSpec:
		var s Spec
		if err := yaml.Unmarshal([]byte(block), &s); err != nil {
			return Metadata{}, &ParseError{Reason: fmt.Sprintf("decoding spec metadata: %v", err)}
		}
		return Metadata{Spec: &s}, nil
	case KindImplementation:
		var i Implementation
		if err := yaml.Unmarshal([]byte(block), &i); err != nil {
			return Metadata{}, &ParseError{Reason: fmt.Sprintf("decoding implementation metadata: %v", err)}
		}
		return Metadata{Implementation: &i}, nil
	default:
		var sc Scratch
		if err := yaml.Unmarshal([]byte(block), &sc); err != nil {
			return Metadata{}, &ParseError{Reason: fmt.Sprintf("decoding scratch metadata: %v", err)}
		}
		return Metadata{Scratch: &sc}, nil
	}
}

// Encode serializes a metadata variant back to a YAML block (no fences).
func Encode(m Metadata) (string, error) {
	var v any
	switch {
	case m.Spec != nil:
		v = m.Spec
	case m.Implementation != nil:
		v = m.Implementation
	case m.Scratch != nil:
		v = m.Scratch
	default:
		return "", &ParseError{Reason: "empty metadata value"}
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	// Strip a stray leading "---" so Compose cannot double-fence.
	s := string(out)
	s = strings.TrimPrefix(s, Delimiter+"\n")
	return s, nil
}

// Compose assembles a full artifact file from a metadata variant and a
// body. The body is used verbatim.
func Compose(m Metadata, body string) (string, error) {
	block, err := Encode(m)
	if err != nil {
		return "", err
	}
	if block != "" && !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	return Delimiter + "\n" + block + Delimiter + "\n" + body, nil
}
