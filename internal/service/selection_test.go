package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/masjid-field-reports/internal/models"
)

func selectionOver(view ...string) *Selection {
	s := NewSelection()
	s.SetView(view)
	return s
}

func TestToggleAllGrowsPartialSelectionToView(t *testing.T) {
	s := selectionOver("id1", "id2", "id3")
	s.Toggle("id1")
	s.Toggle("id2")

	s.ToggleAll()
	assert.Equal(t, []string{"id1", "id2", "id3"}, s.Selected())
	assert.True(t, s.AllSelected())
}

func TestToggleAllPairIdempotent(t *testing.T) {
	empty := selectionOver("a", "b", "c")
	empty.ToggleAll()
	empty.ToggleAll()
	assert.Empty(t, empty.Selected())

	full := selectionOver("a", "b", "c")
	full.ToggleAll()
	full.ToggleAll()
	full.ToggleAll()
	assert.Equal(t, []string{"a", "b", "c"}, full.Selected())
}

func TestToggleFlipsMembership(t *testing.T) {
	s := selectionOver("a", "b")

	assert.True(t, s.Toggle("a"))
	assert.True(t, s.IsSelected("a"))
	assert.True(t, s.Toggle("a"))
	assert.False(t, s.IsSelected("a"))
	assert.False(t, s.Toggle("zzz"))
	assert.Equal(t, 0, s.Len())
}

func TestSetViewPrunesSelection(t *testing.T) {
	s := selectionOver("a", "b", "c")
	s.ToggleAll()

	s.SetView([]string{"b", "c", "d"})
	assert.Equal(t, []string{"b", "c"}, s.Selected())
	assert.False(t, s.AllSelected())

	s.ToggleAll()
	assert.Equal(t, []string{"b", "c", "d"}, s.Selected(), "select-all resets to the new view")
}

func TestTakeBulkEmptyIsNoop(t *testing.T) {
	s := selectionOver("a")

	req, ok := s.TakeBulk(models.StatusApprove)
	assert.False(t, ok)
	assert.Empty(t, req.IDs)
	assert.Equal(t, 1, s.ViewLen())
}

func TestTakeBulkClearsSelection(t *testing.T) {
	s := selectionOver("a", "b", "c")
	s.Toggle("c")
	s.Toggle("a")

	req, ok := s.TakeBulk(models.StatusReject)
	assert.True(t, ok)
	assert.Equal(t, models.BulkRequest{IDs: []string{"c", "a"}, Status: models.StatusReject}, req)
	assert.Equal(t, 0, s.Len())

	s.Toggle("b")
	assert.Equal(t, []string{"c", "a"}, req.IDs, "request must not alias selection state")
}

func TestEmptyViewHeaderUnchecked(t *testing.T) {
	s := NewSelection()
	s.ToggleAll()
	assert.False(t, s.AllSelected())
	assert.Equal(t, 0, s.Len())
}
