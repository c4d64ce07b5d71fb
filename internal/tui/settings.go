package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (a *App) handleSettingsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.keys.lookup(scopeSettings, m) {
	case actionQuit:
		return a.quit()
	case actionBack:
		a.state = viewWorkspace
		a.setStatus("")
	case actionEditURL:
		a.urlInput = textinput.New()
		a.urlInput.Prompt = "Backend URL: "
		a.urlInput.SetValue(a.cfg.API.BaseURL)
		a.modal = modalEditURL
		return a, a.urlInput.Focus()
	case actionReset:
		if a.maint == nil {
			return a, nil
		}
		a.modal = modalConfirmReset
	case actionLogout:
		if a.auth == nil {
			return a, nil
		}
		return a, a.logoutCmd()
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalConfirmReset:
		switch a.keys.lookup(scopeConfirmReset, m) {
		case actionConfirm:
			a.modal = modalNone
			return a, a.resetCmd()
		case actionCancel:
			a.modal = modalNone
		}
	case modalEditURL:
		switch a.keys.lookup(scopeEditURL, m) {
		case actionCancel:
			a.modal = modalNone
			return a, nil
		case actionConfirm:
			text := strings.TrimSpace(a.urlInput.Value())
			if text == "" {
				a.setError("enter a value")
				return a, nil
			}
			a.modal = modalNone
			return a, a.saveURLCmd(text)
		}
		var cmd tea.Cmd
		a.urlInput, cmd = a.urlInput.Update(m)
		return a, cmd
	}
	return a, nil
}

func (a *App) resetCmd() tea.Cmd {
	maint, ctx := a.maint, a.ctx
	return func() tea.Msg {
		if err := maint.Reset(ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("History cleared")
	}
}

func (a *App) saveURLCmd(url string) tea.Cmd {
	cfg := a.cfg
	cfg.API.BaseURL = strings.TrimRight(url, "/")
	if err := cfg.Validate(); err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	a.cfg = cfg
	save := a.saveCfg
	return func() tea.Msg {
		if err := save(cfg); err != nil {
			return errMsg{err}
		}
		return statusMsg("Backend URL saved (restart to apply)")
	}
}

func (a *App) renderSettings() string {
	out := titleStyle.Render("Settings") + "\n"
	out += fmt.Sprintf("Backend URL:      %s\n", a.cfg.API.BaseURL)
	out += fmt.Sprintf("Health interval:  %s (timeout %s)\n", a.cfg.Health.Interval, a.cfg.Health.Timeout)
	out += fmt.Sprintf("Data directory:   %s\n", a.cfg.Storage.DataDir)
	out += fmt.Sprintf("Log file:         %s (%s)\n", a.cfg.Log.File, a.cfg.Log.Level)
	if a.auth != nil {
		out += fmt.Sprintf("Account:          %s\n", orDash(a.auth.Email()))
	}
	out += "Connectivity:     " + a.banner() + "\n\n"

	var hidden []action
	if a.maint == nil {
		hidden = append(hidden, actionReset)
	}
	if a.auth == nil {
		hidden = append(hidden, actionLogout)
	}
	return out + helpStyle.Render(a.keys.help(scopeSettings, hidden...))
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalConfirmReset:
		return titleStyle.Render("Clear history?") + "\nThis deletes every stored analysis.\n" + a.keys.help(scopeConfirmReset)
	case modalEditURL:
		return titleStyle.Render("Backend URL (stored in config.toml)") + "\n" + a.urlInput.View() + "\n" + a.keys.help(scopeEditURL)
	default:
		return ""
	}
}
