// Package render provides output renderers for grade summary patterns.
package render

import (
	"fmt"

	"github.com/dkoosis/gradefetch/pkg/pattern"
)

// Renderer converts patterns to formatted output.
type Renderer interface {
	Render(patterns []pattern.Pattern) string
}

// ByName returns the renderer for a -summary format. width applies to the
// terminal renderer only.
func ByName(name string, theme Theme, width int) (Renderer, error) {
	switch name {
	case "terminal":
		return NewTerminal(theme, width), nil
	case "llm":
		return NewLLM(), nil
	case "json":
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown summary format %q", name)
	}
}
