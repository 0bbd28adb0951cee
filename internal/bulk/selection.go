package bulk

import "github.com/fleetops/access-management/internal/user"

// Selection is an insertion-ordered set of users, de-duplicated by id.
// Processing order is selection order, so the order users were picked in is
// the order they are acted on.
type Selection struct {
	order []string
	byID  map[string]*user.User
}

func NewSelection() *Selection {
	return &Selection{byID: make(map[string]*user.User)}
}

// Select adds the user; selecting an already-selected user is a no-op and
// keeps the original position.
func (s *Selection) Select(u *user.User) {
	if _, ok := s.byID[u.ID]; ok {
		return
	}
	s.order = append(s.order, u.ID)
	s.byID[u.ID] = u
}

// Deselect removes the user if present.
func (s *Selection) Deselect(userID string) {
	if _, ok := s.byID[userID]; !ok {
		return
	}
	delete(s.byID, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Toggle selects the user if absent, deselects if present.
func (s *Selection) Toggle(u *user.User) {
	if _, ok := s.byID[u.ID]; ok {
		s.Deselect(u.ID)
		return
	}
	s.Select(u)
}

// SelectAll replaces the selection with the given users, preserving their
// order and dropping duplicates.
func (s *Selection) SelectAll(users []*user.User) {
	s.Clear()
	for _, u := range users {
		s.Select(u)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.order = nil
	s.byID = make(map[string]*user.User)
}

func (s *Selection) Contains(userID string) bool {
	_, ok := s.byID[userID]
	return ok
}

func (s *Selection) Len() int {
	return len(s.order)
}

// Users returns the selected users in selection order.
func (s *Selection) Users() []*user.User {
	users := make([]*user.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.byID[id])
	}
	return users
}

// UserIDs returns the selected ids in selection order.
func (s *Selection) UserIDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}
