package service

import "github.com/noah-isme/masjid-field-reports/internal/models"

// Selection is the set of checked record ids within the current view. It is
// not safe for concurrent use; ReviewService guards it.
type Selection struct {
	view     []string
	inView   map[string]struct{}
	selected []string
	checked  map[string]struct{}
}

// NewSelection returns an empty selection over an empty view.
func NewSelection() *Selection {
	return &Selection{inView: map[string]struct{}{}, checked: map[string]struct{}{}}
}

// SetView replaces the visible ids and drops selected ids that left the view.
func (s *Selection) SetView(ids []string) {
	s.view = s.view[:0]
	s.inView = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := s.inView[id]; dup {
			continue
		}
		s.inView[id] = struct{}{}
		s.view = append(s.view, id)
	}

	kept := s.selected[:0]
	for _, id := range s.selected {
		if _, ok := s.inView[id]; ok {
			kept = append(kept, id)
		} else {
			delete(s.checked, id)
		}
	}
	s.selected = kept
}

// Toggle flips id. Ids outside the view are ignored and reported false.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.inView[id]; !ok {
		return false
	}
	if _, ok := s.checked[id]; ok {
		delete(s.checked, id)
		for i, sel := range s.selected {
			if sel == id {
				s.selected = append(s.selected[:i], s.selected[i+1:]...)
				break
			}
		}
		return true
	}
	s.checked[id] = struct{}{}
	s.selected = append(s.selected, id)
	return true
}

// ToggleAll clears the selection when every visible id is selected and
// otherwise selects exactly the view.
func (s *Selection) ToggleAll() {
	if len(s.selected) == len(s.view) {
		s.clear()
		return
	}
	s.selected = append(s.selected[:0], s.view...)
	s.checked = make(map[string]struct{}, len(s.view))
	for _, id := range s.view {
		s.checked[id] = struct{}{}
	}
}

// TakeBulk turns the selection into one status request and clears it. An
// empty selection yields ok=false and leaves the state untouched.
func (s *Selection) TakeBulk(status models.ApprovalStatus) (models.BulkRequest, bool) {
	if len(s.selected) == 0 {
		return models.BulkRequest{}, false
	}
	req := models.BulkRequest{IDs: s.Selected(), Status: status}
	s.clear()
	return req, true
}

// Selected returns the selected ids in selection order.
func (s *Selection) Selected() []string {
	return append([]string(nil), s.selected...)
}

// IsSelected reports whether id is checked.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.checked[id]
	return ok
}

// Len is the number of selected ids.
func (s *Selection) Len() int { return len(s.selected) }

// ViewLen is the number of visible ids.
func (s *Selection) ViewLen() int { return len(s.view) }

// AllSelected mirrors the header checkbox: on when the view is non-empty and fully selected.
func (s *Selection) AllSelected() bool {
	return len(s.view) > 0 && len(s.selected) == len(s.view)
}

func (s *Selection) clear() {
	s.selected = s.selected[:0]
	s.checked = map[string]struct{}{}
}
