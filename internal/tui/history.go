package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (a *App) loadHistoryCmd() tea.Cmd {
	hist, ctx := a.history, a.ctx
	return func() tea.Msg {
		entries, err := hist.Recent(ctx, "", historyLimit)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg(entries)
	}
}

func (a *App) loadEntryCmd(id string) tea.Cmd {
	hist, ctx := a.history, a.ctx
	return func() tea.Msg {
		e, err := hist.Load(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return entryMsg(e)
	}
}

func (a *App) deleteEntryCmd(id string) tea.Cmd {
	hist, ctx := a.history, a.ctx
	return func() tea.Msg {
		if err := hist.Delete(ctx, id); err != nil {
			return errMsg{err}
		}
		entries, err := hist.Recent(ctx, "", historyLimit)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg(entries)
	}
}

func (a *App) handleHistoryKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.viewing != nil {
		switch a.keys.lookup(scopeHistoryEntry, m) {
		case actionBack:
			a.viewing = nil
		case actionQuit:
			return a.quit()
		}
		return a, nil
	}
	switch a.keys.lookup(scopeHistory, m) {
	case actionQuit:
		return a.quit()
	case actionBack:
		a.state = viewWorkspace
		a.setStatus("")
	case actionUp:
		if a.histCursor > 0 {
			a.histCursor--
		}
	case actionDown:
		if a.histCursor < len(a.entries)-1 {
			a.histCursor++
		}
	case actionOpen:
		if len(a.entries) == 0 {
			return a, nil
		}
		return a, a.loadEntryCmd(a.entries[a.histCursor].ID)
	case actionDelete:
		if len(a.entries) == 0 {
			return a, nil
		}
		a.setStatus("Deleted " + a.entries[a.histCursor].FileName)
		return a, a.deleteEntryCmd(a.entries[a.histCursor].ID)
	case actionRefresh:
		return a, a.loadHistoryCmd()
	}
	return a, nil
}

func (a *App) renderHistory() string {
	if e := a.viewing; e != nil {
		out := titleStyle.Render("History · "+e.FileName) + "\n"
		out += helpStyle.Render(fmt.Sprintf("%s  %s  engine: %s", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.MediaType, orDash(e.Engine))) + "\n\n"
		out += renderFeatures(e.Features, -1)
		return out + "\n\n" + helpStyle.Render(a.keys.help(scopeHistoryEntry))
	}
	out := titleStyle.Render("History") + "\n"
	if len(a.entries) == 0 {
		out += "  (no analyses yet)\n"
	}
	for i, e := range a.entries {
		marker := " "
		if i == a.histCursor {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %s  %-32s  %3d features (%d GD&T)  %s\n",
			marker, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.FileName, e.FeatureCount, e.GDTCount, orDash(e.Engine))
	}
	return out + helpStyle.Render(a.keys.help(scopeHistory))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
