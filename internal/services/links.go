package services

import (
	"slices"

	"eventticketing/internal/domain"
)

// link and unlink are the only code paths that change User.Events,
// Event.Participants and Event.NumUsers. Both sides change together and
// NumUsers is recomputed from the participant set.

// link pairs u and e. It reports whether either side changed.
func link(u *domain.User, e *domain.Event) bool {
	changed := false
	if !slices.Contains(u.Events, e.ID) {
		u.Events = append(u.Events, e.ID)
		changed = true
	}
	if !slices.Contains(e.Participants, u.ID) {
		e.Participants = append(e.Participants, u.ID)
		changed = true
	}
	e.NumUsers = len(e.Participants)
	return changed
}

// unlink removes the pairing of u and e. It reports whether either side changed.
func unlink(u *domain.User, e *domain.Event) bool {
	var changed bool
	u.Events, changed = remove(u.Events, e.ID)
	var removed bool
	e.Participants, removed = remove(e.Participants, u.ID)
	e.NumUsers = len(e.Participants)
	return changed || removed
}

// remove deletes every occurrence of id from ids.
func remove(ids []string, id string) ([]string, bool) {
	n := len(ids)
	ids = slices.DeleteFunc(ids, func(s string) bool { return s == id })
	return ids, len(ids) != n
}
