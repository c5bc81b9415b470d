// ABOUTME: Tests for the table listing component
// ABOUTME: Validates loading, error and populated states

package listing

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func newListing() *Listing {
	return New("Models", "No models yet", []table.Column{
		{Title: "Name", Width: 20},
		{Title: "Fields", Width: 6},
	})
}

func TestListing_StartsLoading(t *testing.T) {
	l := newListing()

	assert.True(t, l.Loading())
	assert.NotNil(t, l.Init())
	assert.Contains(t, l.View(), "Loading...")
}

func TestListing_SetRows(t *testing.T) {
	l := newListing()
	l.SetRows([]table.Row{{"cars", "3"}, {"people", "5"}})

	assert.False(t, l.Loading())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, table.Row{"cars", "3"}, l.SelectedRow())
	assert.Contains(t, l.View(), "people")
}

func TestListing_MovesCursor(t *testing.T) {
	l := newListing()
	l.SetRows([]table.Row{{"cars", "3"}, {"people", "5"}})

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})

	assert.Equal(t, table.Row{"people", "5"}, l.SelectedRow())
}

func TestListing_Empty(t *testing.T) {
	l := newListing()
	l.SetRows(nil)

	assert.Contains(t, l.View(), "No models yet")
}

func TestListing_Error(t *testing.T) {
	l := newListing()
	l.SetError("backend error: boom")

	assert.False(t, l.Loading())
	assert.Equal(t, "backend error: boom", l.Err())
	assert.Contains(t, l.View(), "backend error: boom")

	l.Reload()
	assert.True(t, l.Loading())
	assert.Empty(t, l.Err())
}

func TestListing_IgnoresTicksWhenLoaded(t *testing.T) {
	l := newListing()
	l.SetRows(nil)

	_, cmd := l.Update(spinner.TickMsg{})
	assert.Nil(t, cmd)
}
