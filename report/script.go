package report

import (
	"context"
	"fmt"
	"io"

	"github.com/wudi/outline/scripting"
	"github.com/wudi/outline/segment"
)

// FormatFunc is the global a formatting script must define. It receives one
// entry object {index, heading, content, type, y, coords: {x1, y1, x2, y2}}
// and returns the line to print.
const FormatFunc = "format"

// Script formats entries with a user-supplied JavaScript function.
type Script struct {
	engine scripting.Engine
}

// NewScript loads source into a fresh engine and checks that it defines
// FormatFunc.
func NewScript(ctx context.Context, source string) (*Script, error) {
	return newScript(ctx, scripting.NewEngine(), source)
}

func newScript(ctx context.Context, engine scripting.Engine, source string) (*Script, error) {
	if _, err := engine.Execute(ctx, source); err != nil {
		return nil, fmt.Errorf("load format script: %w", err)
	}
	defined, err := engine.Execute(ctx, "typeof "+FormatFunc+" === 'function'")
	if err != nil {
		return nil, fmt.Errorf("inspect format script: %w", err)
	}
	if ok, _ := defined.(bool); !ok {
		return nil, fmt.Errorf("format script: %w: %s", scripting.ErrNotFunction, FormatFunc)
	}
	return &Script{engine: engine}, nil
}

// Write prints one formatted line per entry.
func (s *Script) Write(ctx context.Context, w io.Writer, res *segment.Result) error {
	for i, e := range res.Entries() {
		out, err := s.engine.Call(ctx, FormatFunc, entryObject(i, e))
		if err != nil {
			return fmt.Errorf("format entry %d: %w", i, err)
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return err
		}
	}
	return nil
}

func entryObject(i int, e segment.Entry) map[string]interface{} {
	return map[string]interface{}{
		"index":   i,
		"heading": e.Heading,
		"content": e.Content,
		"type":    e.Type,
		"y":       e.Y,
		"coords": map[string]interface{}{
			"x1": e.Coords.X1,
			"y1": e.Coords.Y1,
			"x2": e.Coords.X2,
			"y2": e.Coords.Y2,
		},
	}
}
