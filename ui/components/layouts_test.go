package components

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"autopilot/internal/layout"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLayoutList(t *testing.T) {
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	html := render(t, LayoutList([]layout.Layout{
		{ID: "debug-view", Name: "Debug <View>", Panels: map[string]layout.PanelGeometry{"a": {}, "b": {}}, SavedAt: &at},
		{ID: "custom-1"},
	}))

	assert.True(t, strings.HasPrefix(html, `<ul id="layout-list"`))
	assert.Contains(t, html, `data-layout-id="debug-view"`)
	assert.Contains(t, html, "Debug &lt;View&gt;")
	assert.Contains(t, html, "2 panels")
	assert.Contains(t, html, "2026-05-06T07:08:09Z")
	assert.Contains(t, html, ">custom-1</a>")
	assert.NotContains(t, html, "No saved layouts")
}

func TestLayoutList_Empty(t *testing.T) {
	assert.Contains(t, render(t, LayoutList(nil)), "No saved layouts")
}

func TestLayoutPreview(t *testing.T) {
	html := render(t, LayoutPreview(layout.Layout{ID: "x", Panels: map[string]layout.PanelGeometry{
		"sidebar": {Left: 0, Top: 10, Width: 250.5, Height: 600, Position: layout.PositionAbsolute},
		"editor":  {Left: 250, Width: 700, Height: 600, Display: layout.DisplayNone, ZIndex: "3"},
	}}))

	assert.Less(t, strings.Index(html, `id="editor"`), strings.Index(html, `id="sidebar"`))
	assert.Contains(t, html, "position:absolute;left:0px;top:10px;width:250.5px;height:600px")
	assert.Contains(t, html, "display:none;z-index:3")
	assert.Equal(t, 2, strings.Count(html, layout.DragHandleName))
	assert.Equal(t, 16, strings.Count(html, "resize-handle "))
}

func TestPanel_RespectsConfig(t *testing.T) {
	cfg := layout.NewPanelConfig("p", layout.WithMovable(false), layout.WithResizable(false))
	html := render(t, Panel("p", layout.PanelGeometry{Width: 1, Height: 1}, cfg))
	assert.NotContains(t, html, layout.DragHandleName)
	assert.NotContains(t, html, "resize-handle")
}

func TestPanelStyle_StripsInjection(t *testing.T) {
	style := PanelStyle(layout.PanelGeometry{ZIndex: `1;background:url("x")`})
	assert.NotContains(t, style, ";background")
	assert.NotContains(t, style, `"`)
}
