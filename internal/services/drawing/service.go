// Package drawing maintains the per-turn drawing log and reconstructs strokes for replay.
package drawing

import (
	"fmt"
	"time"

	"github.com/mcoot/drawguess/internal/model"
)

// DefaultStrokeGap is the largest gap between two points that still joins them into one stroke
const DefaultStrokeGap = 50 * time.Millisecond

// Validate checks a draw entry is well formed
func Validate(p model.DrawPoint) error {
	if p.Size <= 0 {
		return fmt.Errorf("%w: size must be positive", model.ErrInvalidDrawAction)
	}

	switch p.Tool {
	case model.ToolBrush, model.ToolEraser, model.ToolBucket:
		if p.Shape != nil {
			return fmt.Errorf("%w: %s entries cannot carry a shape", model.ErrInvalidDrawAction, p.Tool)
		}
	case model.ToolShape:
		if p.Shape == nil {
			return fmt.Errorf("%w: shape entry without shape", model.ErrInvalidDrawAction)
		}
		switch p.Shape.Kind {
		case model.ShapeCircle, model.ShapeRectangle, model.ShapeTriangle:
		default:
			return fmt.Errorf("%w: unknown shape %q", model.ErrInvalidDrawAction, p.Shape.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown tool %q", model.ErrInvalidDrawAction, p.Tool)
	}
	return nil
}

// Apply returns the log after applying action. DRAW appends p; CLEAR empties the log.
// Timestamps are kept non-decreasing: an entry older than the log tail is stamped with the tail's time.
func Apply(log []model.DrawPoint, action model.DrawAction, p *model.DrawPoint) ([]model.DrawPoint, error) {
	switch action {
	case model.DrawActionClear:
		return []model.DrawPoint{}, nil
	case model.DrawActionDraw:
		if p == nil {
			return log, fmt.Errorf("%w: missing drawing data", model.ErrInvalidDrawAction)
		}
		if err := Validate(*p); err != nil {
			return log, err
		}
		entry := p.Clone()
		if n := len(log); n > 0 && entry.Timestamp.Before(log[n-1].Timestamp) {
			entry.Timestamp = log[n-1].Timestamp
		}
		return append(log, entry), nil
	default:
		return log, fmt.Errorf("%w: unknown action %q", model.ErrInvalidDrawAction, action)
	}
}

// Stroke is a run of entries a renderer draws as one continuous path, or a single shape
type Stroke struct {
	PlayerID model.PlayerID `json:"playerId"`
	Tool     model.Tool     `json:"tool"`
	Color    string         `json:"color"`
	Size     float64        `json:"size"`
	Points   []model.Point  `json:"points,omitempty"`
	Shape    *model.Shape   `json:"shape,omitempty"`
}

// Strokes groups the log into strokes. Consecutive stroke points from the same player with the
// same brush join into one stroke unless more than gap separates them; shapes and bucket fills
// always stand alone.
func Strokes(log []model.DrawPoint, gap time.Duration) []Stroke {
	var strokes []Stroke
	var prev *model.DrawPoint

	for i := range log {
		p := log[i]

		if p.IsShape() {
			shape := *p.Shape
			strokes = append(strokes, Stroke{PlayerID: p.PlayerID, Tool: p.Tool, Color: p.Color, Size: p.Size, Shape: &shape})
			prev = nil
			continue
		}

		point := model.Point{X: p.X, Y: p.Y}
		if prev != nil && continues(*prev, p, gap) {
			last := &strokes[len(strokes)-1]
			last.Points = append(last.Points, point)
		} else {
			strokes = append(strokes, Stroke{PlayerID: p.PlayerID, Tool: p.Tool, Color: p.Color, Size: p.Size, Points: []model.Point{point}})
		}

		if p.Tool == model.ToolBucket {
			prev = nil
		} else {
			prev = &log[i]
		}
	}
	return strokes
}

func continues(prev, next model.DrawPoint, gap time.Duration) bool {
	return prev.PlayerID == next.PlayerID &&
		prev.Tool == next.Tool &&
		prev.Color == next.Color &&
		prev.Size == next.Size &&
		next.Timestamp.Sub(prev.Timestamp) <= gap
}
