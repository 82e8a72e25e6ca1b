package model

import "time"

// DrawAction is the kind of update applied to the drawing log
type DrawAction string

const (
	DrawActionDraw  DrawAction = "DRAW"
	DrawActionClear DrawAction = "CLEAR"
)

// Tool is the drawing tool that produced a point
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
	ToolBucket Tool = "bucket"
	ToolShape  Tool = "shape"
)

// ShapeKind identifies a shape drawn with the shape tool
type ShapeKind string

const (
	ShapeCircle    ShapeKind = "circle"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeTriangle  ShapeKind = "triangle"
)

// Point is a canvas coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is a shape anchored by two points; interpretation is up to the renderer
type Shape struct {
	Kind  ShapeKind `json:"kind"`
	Start Point     `json:"start"`
	End   Point     `json:"end"`
}

// DrawPoint is one entry of the drawing log. Stroke points carry X/Y, shape entries carry Shape.
type DrawPoint struct {
	PlayerID  PlayerID  `json:"playerId"`
	Tool      Tool      `json:"tool"`
	Size      float64   `json:"size"`
	Color     string    `json:"color"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Shape     *Shape    `json:"shape,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsShape reports whether the entry is a shape rather than a stroke point
func (p DrawPoint) IsShape() bool {
	return p.Tool == ToolShape
}

// Clone returns a copy that shares no memory with p
func (p DrawPoint) Clone() DrawPoint {
	if p.Shape != nil {
		s := *p.Shape
		p.Shape = &s
	}
	return p
}
