package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type action string

const (
	actionNone      action = ""
	actionQuit      action = "quit"
	actionBack      action = "back"
	actionSubmit    action = "submit"
	actionPreview   action = "preview"
	actionClear     action = "clear"
	actionFocus     action = "focus"
	actionUp        action = "up"
	actionDown      action = "down"
	actionFilter    action = "filter"
	actionUnmark    action = "unmark"
	actionHistory   action = "history"
	actionSettings  action = "settings"
	actionOpen      action = "open"
	actionDelete    action = "delete"
	actionRefresh   action = "refresh"
	actionEditURL   action = "edit_url"
	actionReset     action = "reset"
	actionLogout    action = "logout"
	actionNextField action = "next_field"
	actionRegister  action = "register"
	actionConfirm   action = "confirm"
	actionCancel    action = "cancel"
)

type keyScope string

const (
	scopeLogin        keyScope = "login"
	scopeRegister     keyScope = "register"
	scopeWorkspace    keyScope = "workspace"
	scopeResults      keyScope = "results"
	scopeHistory      keyScope = "history"
	scopeHistoryEntry keyScope = "history_entry"
	scopeSettings     keyScope = "settings"
	scopeConfirmReset keyScope = "confirm_reset"
	scopeEditURL      keyScope = "edit_url"
)

type binding struct {
	action action
	key.Binding
}

// keyRegistry maps key presses to actions per screen and renders the footer
// help for each screen from the same table.
type keyRegistry struct {
	byScope map[keyScope][]binding
}

func newKeyRegistry() *keyRegistry {
	r := &keyRegistry{byScope: make(map[keyScope][]binding)}
	reg := func(scope keyScope, act action, keys []string, label, desc string) {
		r.byScope[scope] = append(r.byScope[scope], binding{
			action:  act,
			Binding: key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc)),
		})
	}

	reg(scopeLogin, actionSubmit, []string{"enter"}, "enter", "Sign in")
	reg(scopeLogin, actionNextField, []string{"tab"}, "tab", "Next field")
	reg(scopeLogin, actionRegister, []string{"ctrl+r"}, "ctrl+r", "Register")
	reg(scopeLogin, actionQuit, []string{"esc"}, "esc", "Quit")

	reg(scopeRegister, actionSubmit, []string{"enter"}, "enter", "Register")
	reg(scopeRegister, actionNextField, []string{"tab"}, "tab", "Next field")
	reg(scopeRegister, actionBack, []string{"esc"}, "esc", "Back")

	reg(scopeWorkspace, actionSubmit, []string{"enter"}, "enter", "Analyse")
	reg(scopeWorkspace, actionPreview, []string{"ctrl+p"}, "ctrl+p", "Preview")
	reg(scopeWorkspace, actionClear, []string{"ctrl+x"}, "ctrl+x", "Clear")
	reg(scopeWorkspace, actionFocus, []string{"tab", "esc"}, "tab", "Switch focus")

	reg(scopeResults, actionSubmit, []string{"enter"}, "enter", "Analyse")
	reg(scopeResults, actionFocus, []string{"tab", "i"}, "tab", "Switch focus")
	reg(scopeResults, actionUp, []string{"up", "k"}, "j/k", "Select")
	reg(scopeResults, actionDown, []string{"down", "j"}, "", "")
	reg(scopeResults, actionFilter, []string{"/"}, "/", "Filter")
	reg(scopeResults, actionUnmark, []string{"esc"}, "", "")
	reg(scopeResults, actionHistory, []string{"h"}, "h", "History")
	reg(scopeResults, actionSettings, []string{"s"}, "s", "Settings")
	reg(scopeResults, actionQuit, []string{"q"}, "q", "Quit")

	reg(scopeHistory, actionOpen, []string{"enter"}, "enter", "Open")
	reg(scopeHistory, actionUp, []string{"up", "k"}, "", "")
	reg(scopeHistory, actionDown, []string{"down", "j"}, "", "")
	reg(scopeHistory, actionDelete, []string{"d", "delete"}, "d", "Delete")
	reg(scopeHistory, actionRefresh, []string{"r"}, "r", "Refresh")
	reg(scopeHistory, actionBack, []string{"esc", "w"}, "esc", "Workspace")
	reg(scopeHistory, actionQuit, []string{"q"}, "q", "Quit")

	reg(scopeHistoryEntry, actionBack, []string{"esc", "backspace"}, "esc", "Back")
	reg(scopeHistoryEntry, actionQuit, []string{"q"}, "q", "Quit")

	reg(scopeSettings, actionEditURL, []string{"e"}, "e", "Edit backend URL")
	reg(scopeSettings, actionReset, []string{"x"}, "x", "Clear history")
	reg(scopeSettings, actionLogout, []string{"L"}, "L", "Sign out")
	reg(scopeSettings, actionBack, []string{"esc", "w"}, "esc", "Workspace")
	reg(scopeSettings, actionQuit, []string{"q"}, "q", "Quit")

	reg(scopeConfirmReset, actionConfirm, []string{"y", "Y"}, "y", "Yes")
	reg(scopeConfirmReset, actionCancel, []string{"n", "N", "esc"}, "n", "No")

	reg(scopeEditURL, actionConfirm, []string{"enter"}, "enter", "Save")
	reg(scopeEditURL, actionCancel, []string{"esc"}, "esc", "Cancel")

	return r
}

// lookup returns the action bound to m in scope, or actionNone.
func (r *keyRegistry) lookup(scope keyScope, m tea.KeyMsg) action {
	for _, b := range r.byScope[scope] {
		if key.Matches(m, b.Binding) {
			return b.action
		}
	}
	return actionNone
}

// help renders "[key] Label" pairs for scope, leaving out hidden bindings and
// any action listed in skip.
func (r *keyRegistry) help(scope keyScope, skip ...action) string {
	var parts []string
outer:
	for _, b := range r.byScope[scope] {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		for _, s := range skip {
			if b.action == s {
				continue outer
			}
		}
		parts = append(parts, "["+h.Key+"] "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
