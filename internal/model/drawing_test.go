package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawPointEncodesOriginCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		point DrawPoint
	}{
		{"brush", DrawPoint{PlayerID: "p1", Tool: ToolBrush, Size: 4, Color: "#000"}},
		{"bucket", DrawPoint{PlayerID: "p1", Tool: ToolBucket, Size: 4, Color: "#000"}},
		{"eraser", DrawPoint{PlayerID: "p1", Tool: ToolEraser, Size: 10, Color: "#fff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.point)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(data, &fields))
			assert.Equal(t, 0.0, fields["x"])
			assert.Equal(t, 0.0, fields["y"])
			assert.Contains(t, string(data), `"x":0,"y":0`)
			assert.NotContains(t, fields, "shape")
		})
	}
}

func TestDrawPointShapeKeepsAnchors(t *testing.T) {
	p := DrawPoint{Tool: ToolShape, Shape: &Shape{Kind: ShapeRectangle, End: Point{X: 5, Y: 8}}}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start":{"x":0,"y":0}`)

	var decoded DrawPoint
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Shape)
	assert.Equal(t, *p.Shape, *decoded.Shape)
	assert.True(t, decoded.IsShape())
}
