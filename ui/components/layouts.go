package components

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"autopilot/internal/layout"

	"github.com/a-h/templ"
)

// Element ids targeted by SSE fragment merges.
const (
	LayoutListID    = "layout-list"
	LayoutPreviewID = "layout-preview"
)

// LayoutList renders the saved layouts, most recent first as given.
func LayoutList(layouts []layout.Layout) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<ul id=\"%s\" class=\"layout-list\">", LayoutListID); err != nil {
			return err
		}
		if len(layouts) == 0 {
			if _, err := io.WriteString(w, "<li class=\"layout-empty\">No saved layouts</li>"); err != nil {
				return err
			}
		}
		for _, l := range layouts {
			if err := layoutItem(l).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>")
		return err
	})
}

func layoutItem(l layout.Layout) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		name := l.Name
		if name == "" {
			name = l.ID
		}
		saved := ""
		if l.SavedAt != nil {
			saved = l.SavedAt.UTC().Format(time.RFC3339)
		}
		_, err := fmt.Fprintf(w,
			"<li class=\"layout-item\" data-layout-id=\"%s\"><a href=\"/api/layouts/%s/preview\">%s</a> <span class=\"layout-panels\">%d panels</span> <time datetime=\"%s\">%s</time></li>",
			templ.EscapeString(l.ID),
			templ.EscapeString(url.PathEscape(l.ID)),
			templ.EscapeString(name),
			len(l.Panels),
			saved, saved,
		)
		return err
	})
}

// LayoutPreview renders every panel of l at its stored geometry.
func LayoutPreview(l layout.Layout) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<div id=\"%s\" class=\"layout-preview\" data-layout-id=\"%s\">",
			LayoutPreviewID, templ.EscapeString(l.ID)); err != nil {
			return err
		}
		ids := make([]string, 0, len(l.Panels))
		for id := range l.Panels {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := Panel(id, l.Panels[id], layout.NewPanelConfig(id)).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}

// Panel renders one panel with its drag and resize handles.
func Panel(id string, g layout.PanelGeometry, cfg layout.PanelConfig) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<div class=\"panel\" id=\"%s\" style=\"%s\">", templ.EscapeString(id), PanelStyle(g))
		if cfg.Movable {
			fmt.Fprintf(&b, "<div class=\"%s\"></div>", layout.DragHandleName)
		}
		if cfg.Resizable {
			for _, dir := range layout.Directions {
				fmt.Fprintf(&b, "<div class=\"resize-handle %s\"></div>", dir.HandleName())
			}
		}
		b.WriteString("</div>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PanelStyle renders g as inline CSS. Empty string fields are omitted.
func PanelStyle(g layout.PanelGeometry) string {
	var parts []string
	if g.Position != "" {
		parts = append(parts, "position:"+cssValue(g.Position))
	}
	parts = append(parts,
		"left:"+px(g.Left),
		"top:"+px(g.Top),
		"width:"+px(g.Width),
		"height:"+px(g.Height),
	)
	if g.Display != "" {
		parts = append(parts, "display:"+cssValue(g.Display))
	}
	if g.ZIndex != "" {
		parts = append(parts, "z-index:"+cssValue(g.ZIndex))
	}
	return strings.Join(parts, ";")
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// cssValue keeps stored strings from breaking out of the style attribute.
func cssValue(s string) string {
	return templ.EscapeString(strings.Map(func(r rune) rune {
		switch r {
		case ';', '"', '\'', '<', '>', '{', '}':
			return -1
		}
		return r
	}, s))
}
