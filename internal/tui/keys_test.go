package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRegistryLookup(t *testing.T) {
	t.Parallel()
	r := newKeyRegistry()

	tests := []struct {
		scope keyScope
		key   tea.KeyMsg
		want  action
	}{
		{scopeResults, keyMsg("j"), actionDown},
		{scopeResults, tea.KeyMsg{Type: tea.KeyUp}, actionUp},
		{scopeResults, keyMsg("i"), actionFocus},
		{scopeResults, keyMsg("esc"), actionUnmark},
		{scopeWorkspace, keyMsg("esc"), actionFocus},
		{scopeWorkspace, keyMsg("ctrl+p"), actionPreview},
		{scopeHistory, tea.KeyMsg{Type: tea.KeyDelete}, actionDelete},
		{scopeConfirmReset, keyMsg("Y"), actionConfirm},
		{scopeSettings, keyMsg("z"), actionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.lookup(tt.scope, tt.key), "%s %q", tt.scope, tt.key.String())
	}
}

func TestKeyRegistryHelp(t *testing.T) {
	t.Parallel()
	r := newKeyRegistry()

	require.Equal(t, "[esc] Back  [q] Quit", r.help(scopeHistoryEntry))
	require.Equal(t, "[e] Edit backend URL  [esc] Workspace  [q] Quit",
		r.help(scopeSettings, actionReset, actionLogout))
	// hidden bindings still match but stay out of the footer
	require.NotContains(t, r.help(scopeResults), "down")
}
