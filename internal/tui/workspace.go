package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/scandraw/internal/controller"
	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/health"
	"github.com/jask/scandraw/internal/prefs"
	"github.com/jask/scandraw/internal/session"
)

func (a *App) handleWorkspaceKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.keys.lookup(scopeWorkspace, m) {
	case actionPreview:
		a.preview()
		return a, nil
	case actionClear:
		a.ctrl.Clear()
		a.selectedPath = ""
		a.cursor = 0
		a.filter.SetValue("")
		a.setStatus("Cleared")
		return a, nil
	}

	switch a.focus {
	case focusFilter:
		switch m.String() {
		case "esc":
			a.filter.SetValue("")
			a.filter.Blur()
			a.focus = focusResults
			a.cursor = 0
			a.ctrl.Highlight(nil)
			return a, nil
		case "enter":
			a.filter.Blur()
			a.focus = focusResults
			return a, nil
		}
		var cmd tea.Cmd
		a.filter, cmd = a.filter.Update(m)
		a.cursor = 0
		return a, cmd
	case focusResults:
		return a.handleResultsKey(m)
	}

	switch a.keys.lookup(scopeWorkspace, m) {
	case actionSubmit:
		return a, a.submit()
	case actionFocus:
		a.path.Blur()
		a.focus = focusResults
		return a, nil
	}
	var cmd tea.Cmd
	a.path, cmd = a.path.Update(m)
	return a, cmd
}

func (a *App) handleResultsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := a.results()
	switch a.keys.lookup(scopeResults, m) {
	case actionQuit:
		return a.quit()
	case actionFocus:
		a.focus = focusPath
		return a, a.path.Focus()
	case actionSubmit:
		return a, a.submit()
	case actionUp:
		if a.cursor > 0 {
			a.cursor--
		}
		a.highlightCursor(rows)
	case actionDown:
		if a.cursor < len(rows)-1 {
			a.cursor++
		}
		a.highlightCursor(rows)
	case actionFilter:
		a.focus = focusFilter
		return a, a.filter.Focus()
	case actionUnmark:
		a.ctrl.Highlight(nil)
	case actionHistory:
		if a.history == nil {
			return a, nil
		}
		a.state = viewHistory
		a.viewing = nil
		a.setStatus("")
		return a, a.loadHistoryCmd()
	case actionSettings:
		a.state = viewSettings
		a.setStatus("")
	}
	return a, nil
}

func (a *App) highlightCursor(rows []feature.Feature) {
	if a.cursor < 0 || a.cursor >= len(rows) {
		a.ctrl.Highlight(nil)
		return
	}
	f := rows[a.cursor]
	a.ctrl.Highlight(&f)
}

// results are the sorted features of a Complete state narrowed by the filter.
func (a *App) results() []feature.Feature {
	sorted := a.ctrl.View().Sorted
	if q := strings.TrimSpace(a.filter.Value()); q != "" {
		return feature.Search(sorted, q)
	}
	return sorted
}

func (a *App) readPath() (session.File, string, bool) {
	path := strings.TrimSpace(a.path.Value())
	if path == "" {
		a.setError("Enter the path of a drawing.")
		return session.File{}, "", false
	}
	f, err := session.ReadFile(expandPath(path))
	if err != nil {
		a.setError(err.Error())
		return session.File{}, "", false
	}
	return f, path, true
}

func (a *App) preview() {
	f, path, ok := a.readPath()
	if !ok {
		return
	}
	if err := a.ctrl.Select(f); err != nil {
		a.setError(submitMessage(err))
		return
	}
	a.selectedPath = path
	a.cursor = 0
	a.setStatus("Previewing " + f.Name + ". Press enter to analyse.")
}

func (a *App) submit() tea.Cmd {
	var (
		up   *controller.Upload
		err  error
		path = strings.TrimSpace(a.path.Value())
	)
	if _, ok := a.ctrl.View().State.(session.Previewing); ok && path == a.selectedPath {
		up, err = a.ctrl.SubmitSelected()
	} else {
		f, p, ok := a.readPath()
		if !ok {
			return nil
		}
		path = p
		up, err = a.ctrl.Submit(f)
	}
	if err != nil {
		a.setError(submitMessage(err))
		return nil
	}
	a.selectedPath = ""
	a.cursor = 0
	a.filter.SetValue("")
	a.setStatus("Analysing " + up.File().Name + "…")
	return a.uploadCmd(up, path)
}

func (a *App) uploadCmd(up *controller.Upload, path string) tea.Cmd {
	ctx, dir, logger := a.ctx, a.prefsDir, a.logger
	return func() tea.Msg {
		if err := prefs.Update(dir, func(p *prefs.Prefs) { p.LastPath = path }); err != nil {
			logger.Warn("tui: save prefs", "error", err)
		}
		st, err := up.Run(ctx)
		return uploadDoneMsg{file: up.File().Name, state: st, err: err}
	}
}

func (a *App) handleUploadDone(m uploadDoneMsg) {
	if errors.Is(m.err, session.ErrSuperseded) {
		return
	}
	switch st := m.state.(type) {
	case session.Failed:
		a.setError(st.Message)
	case session.Complete:
		g := feature.Classify(st.Features)
		a.setStatus(fmt.Sprintf("%s: %s, %s", m.file,
			pluralize(len(g.Dimensions), "dimension", "dimensions"),
			pluralize(len(g.GDT), "GD&T annotation", "GD&T annotations")))
		a.cursor = 0
		a.path.Blur()
		a.focus = focusResults
	}
}

func (a *App) banner() string {
	c := a.ctrl.View().Connectivity
	switch c.Status {
	case health.StatusOnline:
		if c.Engine == "" {
			return okStyle.Render("● Online")
		}
		return okStyle.Render("● Online · " + c.Engine)
	case health.StatusOffline:
		return errorStyle.Render("● Offline")
	default:
		return warnStyle.Render("● Checking…")
	}
}

func (a *App) renderWorkspace() string {
	v := a.ctrl.View()
	title := titleStyle.Render("ScanDraw")
	if a.auth != nil && a.auth.Email() != "" {
		title += helpStyle.Render("  " + a.auth.Email())
	}
	out := title + "  " + a.banner() + "\n" + a.path.View() + "\n\n"

	pane := a.pane.Render(session.PreviewOf(v.State), a.cfg.UI.PreviewWidth, a.cfg.UI.PreviewHeight)
	out += lipgloss.JoinHorizontal(lipgloss.Top, pane, "  ", a.renderState(v))

	help := a.keys.help(scopeWorkspace)
	if a.focus != focusPath {
		skip := []action{actionSubmit, actionFocus}
		if a.history == nil {
			skip = append(skip, actionHistory)
		}
		help += "  " + a.keys.help(scopeResults, skip...)
	}
	if !v.CanSubmit() {
		help = strings.Replace(help, "[enter] Analyse", helpStyle.Render("[enter] Analyse (disabled)"), 1)
	}
	return out + "\n" + helpStyle.Render(help)
}

func (a *App) renderState(v controller.View) string {
	switch st := v.State.(type) {
	case session.Previewing:
		return "Ready to analyse " + st.Preview.Name
	case session.Processing:
		return warnStyle.Render("Analysing " + st.Preview.Name + "…")
	case session.Failed:
		return errorStyle.Render("Analysis failed: " + st.Message)
	case session.Complete:
		out := fmt.Sprintf("Dimensions: %d  GD&T: %d\n", len(v.Groups.Dimensions), len(v.Groups.GDT))
		if a.focus == focusFilter || a.filter.Value() != "" {
			out += a.filter.View() + "\n"
		}
		cursor := -1
		if a.focus != focusPath {
			cursor = a.cursor
		}
		return out + renderFeatures(a.results(), cursor)
	default:
		return helpStyle.Render("Type a drawing path. [ctrl+p] previews it, [enter] sends it for analysis.")
	}
}

func renderFeatures(rows []feature.Feature, cursor int) string {
	if len(rows) == 0 {
		return helpStyle.Render("(no matching features)")
	}
	lines := make([]string, 0, len(rows))
	for i, f := range rows {
		marker := " "
		if i == cursor {
			marker = "▶"
		}
		var kind string
		if f.IsGDT() {
			kind = gdtStyle.Render(fmt.Sprintf("%-2s %-18s", feature.SymbolFor(f.Subtype), f.Subtype))
		} else {
			label := f.Subtype
			if label == "" {
				label = string(feature.KindDimension)
			}
			kind = dimensionStyle.Render(fmt.Sprintf("%-2s %-18s", "↔", label))
		}
		line := fmt.Sprintf("%s %s %-12s", marker, kind, f.Value)
		if f.Tolerance != "" {
			line += " " + f.Tolerance
		}
		if f.Datum != "" {
			line += " |" + f.Datum
		}
		if l := f.Limits(); l != "" {
			line += "  (" + l + ")"
		}
		line += fmt.Sprintf("  p%d", f.Page)
		if f.Box == nil {
			line += helpStyle.Render("  no region")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
