package collector

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Extract names how a candidate string is read off a matched element.
type Extract string

const (
	// ExtractResolvedSrc reads a playable element's resolved source
	// (currentSrc, falling back to src).
	ExtractResolvedSrc Extract = "resolved_src"

	// ExtractAttr reads the attribute named by Strategy.Attr.
	ExtractAttr Extract = "attr"
)

// Strategy pairs a CSS selector with an extraction rule.
type Strategy struct {
	Selector string  `yaml:"selector" json:"selector"`
	Extract  Extract `yaml:"extract" json:"extract"`
	Attr     string  `yaml:"attr,omitempty" json:"attr,omitempty"`
}

// ResolvedSource matches playable elements and reads their resolved source.
func ResolvedSource(selector string) Strategy {
	return Strategy{Selector: selector, Extract: ExtractResolvedSrc}
}

// Attribute matches elements and reads the named attribute.
func Attribute(selector, attr string) Strategy {
	return Strategy{Selector: selector, Extract: ExtractAttr, Attr: attr}
}

// Validate checks that the selector compiles and the extraction rule is complete.
func (s Strategy) Validate() error {
	if s.Selector == "" {
		return fmt.Errorf("strategy: empty selector")
	}
	if _, err := cascadia.Compile(s.Selector); err != nil {
		return fmt.Errorf("strategy: invalid selector %q: %w", s.Selector, err)
	}
	switch s.Extract {
	case ExtractResolvedSrc:
	case ExtractAttr:
		if s.Attr == "" {
			return fmt.Errorf("strategy: selector %q extracts an attribute but names none", s.Selector)
		}
	default:
		return fmt.Errorf("strategy: unknown extract rule %q", s.Extract)
	}
	return nil
}
