package app

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/bookmarks"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/probe"
)

type palette struct {
	title, dim, warn, reset string
}

var palettes = map[domain.Theme]palette{
	domain.ThemeLight: {title: "\033[1;34m", dim: "\033[90m", warn: "\033[31m", reset: "\033[0m"},
	domain.ThemeDark:  {title: "\033[1;96m", dim: "\033[37m", warn: "\033[91m", reset: "\033[0m"},
}

func (a *App) palette() palette {
	if !a.color {
		return palette{}
	}
	return palettes[a.theme.Current()]
}

// renderList writes the bookmark dashboard for st.
func (a *App) renderList(st bookmarks.State) {
	p := a.palette()
	var b strings.Builder

	if st.Err != nil {
		fmt.Fprintf(&b, "%s⚠ %s%s\n", p.warn, bookmarks.LoadErrorMessage, p.reset)
	}
	if st.Loading && len(st.Bookmarks) == 0 {
		b.WriteString("Loading bookmarks...\n")
	}
	if st.Phase == bookmarks.PhaseLoaded && len(st.Bookmarks) == 0 {
		b.WriteString("No bookmarks yet. Add one with `add <url>`.\n")
	}

	for _, bm := range st.Bookmarks {
		line := a.summary.Render(bm)
		fmt.Fprintf(&b, "%s[%d] %s%s\n", p.title, bm.ID, bm.DisplayTitle(), p.reset)
		fmt.Fprintf(&b, "     %s%s%s\n", p.dim, bm.URL, p.reset)
		fmt.Fprintf(&b, "     %s\n", line.Text)
		if line.Toggle {
			fmt.Fprintf(&b, "     %s(%s: more %d)%s\n", p.dim, line.Label, bm.ID, p.reset)
		}
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprint(a.out, b.String())
}

// renderProbe writes a probe result.
func (a *App) renderProbe(res probe.Result) {
	p := a.palette()
	var b strings.Builder

	switch res.Phase {
	case probe.PhaseSuccess:
		fmt.Fprintf(&b, "✅ %s\n", res.Message)
	case probe.PhaseError:
		fmt.Fprintf(&b, "%s❌ %s%s\n", p.warn, res.Message, p.reset)
	default:
		fmt.Fprintf(&b, "%s\n", res.Message)
	}

	if d := res.Diagnostics; d != nil {
		fmt.Fprintf(&b, "   root:   %s\n", a.client.RootURL())
		fmt.Fprintf(&b, "   api:    %s\n", a.client.BaseURL())
		if d.RootStatus != 0 {
			fmt.Fprintf(&b, "   root status:   %d\n", d.RootStatus)
		}
		if d.HealthStatus != 0 {
			fmt.Fprintf(&b, "   health status: %d\n", d.HealthStatus)
		}
		if d.HealthData != "" {
			fmt.Fprintf(&b, "   health:        %s\n", d.HealthData)
		}
		if d.HealthError != "" {
			fmt.Fprintf(&b, "   %shealth error:  %s%s\n", p.dim, d.HealthError, p.reset)
		}
		if e := d.Error; e != nil {
			fmt.Fprintf(&b, "   error:  %s: %s\n", e.Code, e.Message)
			fmt.Fprintf(&b, "   request: %s %s (timeout %s)\n", e.Request.Method, e.Request.URL, e.Request.Timeout)
		}
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprint(a.out, b.String())
}
