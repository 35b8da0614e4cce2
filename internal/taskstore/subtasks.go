package taskstore

import (
	"fmt"
	"sort"
)

// AddSubtask appends a subtask to a task. An Order of zero or less places it
// after the current last subtask.
func (s *Store) AddSubtask(taskID string, st Subtask) (Subtask, error) {
	added, err := s.AddSubtasks(taskID, []Subtask{st})
	if err != nil {
		return Subtask{}, err
	}
	return added[0], nil
}

// AddSubtasks appends several subtasks to a task in one step.
func (s *Store) AddSubtasks(taskID string, subs []Subtask) ([]Subtask, error) {
	i := s.indexOf(taskID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	t := cloneTask(s.tasks[i])
	prepared, err := s.prepareSubtasks(t.Subtasks, subs)
	if err != nil {
		return nil, err
	}

	t.Subtasks = append(t.Subtasks, prepared...)
	s.replaceTask(i, t)

	out := make([]Subtask, len(prepared))
	for j, st := range prepared {
		out[j] = cloneSubtask(st)
	}
	return out, nil
}

// UpdateSubtask applies a patch to one subtask. Moving into completed stamps
// CompletedAt; moving out of it clears the stamp.
func (s *Store) UpdateSubtask(taskID, subtaskID string, p SubtaskPatch) (Subtask, error) {
	i, j, err := s.locateSubtask(taskID, subtaskID)
	if err != nil {
		return Subtask{}, err
	}

	t := cloneTask(s.tasks[i])
	st := t.Subtasks[j]
	if p.Name != nil {
		if *p.Name == "" {
			return Subtask{}, ErrEmptyName
		}
		st.Name = *p.Name
	}
	if p.Order != nil {
		st.Order = *p.Order
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return Subtask{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
		}
		s.setSubtaskStatus(&st, *p.Status)
	}
	if p.EstHours != nil {
		st.EstHours = cloneFloat(p.EstHours)
	}
	if p.ActualHours != nil {
		st.ActualHours = cloneFloat(p.ActualHours)
	}
	if p.Notes != nil {
		st.Notes = *p.Notes
	}

	t.Subtasks[j] = st
	s.replaceTask(i, t)
	return cloneSubtask(st), nil
}

// DeleteSubtask removes a subtask from its task.
func (s *Store) DeleteSubtask(taskID, subtaskID string) error {
	i, j, err := s.locateSubtask(taskID, subtaskID)
	if err != nil {
		return err
	}

	t := cloneTask(s.tasks[i])
	subs := make([]Subtask, 0, len(t.Subtasks)-1)
	subs = append(subs, t.Subtasks[:j]...)
	subs = append(subs, t.Subtasks[j+1:]...)
	t.Subtasks = subs

	s.replaceTask(i, t)
	return nil
}

// ReorderSubtasks rewrites the Order of a task's subtasks to follow ids,
// which must name every subtask exactly once.
func (s *Store) ReorderSubtasks(taskID string, ids []string) error {
	i := s.indexOf(taskID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	t := cloneTask(s.tasks[i])
	if len(ids) != len(t.Subtasks) {
		return ErrInvalidOrder
	}

	byID := make(map[string]Subtask, len(t.Subtasks))
	for _, st := range t.Subtasks {
		byID[st.ID] = st
	}

	subs := make([]Subtask, 0, len(ids))
	for pos, id := range ids {
		st, ok := byID[id]
		if !ok {
			return ErrInvalidOrder
		}
		delete(byID, id)
		st.Order = pos + 1
		subs = append(subs, st)
	}
	t.Subtasks = subs

	s.replaceTask(i, t)
	return nil
}

// ToggleSubtask flips a subtask between completed and pending.
// Any status other than completed toggles to completed.
func (s *Store) ToggleSubtask(taskID, subtaskID string) (Subtask, error) {
	i, j, err := s.locateSubtask(taskID, subtaskID)
	if err != nil {
		return Subtask{}, err
	}

	t := cloneTask(s.tasks[i])
	st := t.Subtasks[j]
	if st.Status == StatusCompleted {
		s.setSubtaskStatus(&st, StatusPending)
	} else {
		s.setSubtaskStatus(&st, StatusCompleted)
	}

	t.Subtasks[j] = st
	s.replaceTask(i, t)
	return cloneSubtask(st), nil
}

// SortedSubtasks returns the subtasks of t ordered by Order. Ties keep their
// stored order.
func SortedSubtasks(t Task) []Subtask {
	subs := make([]Subtask, len(t.Subtasks))
	for i, st := range t.Subtasks {
		subs[i] = cloneSubtask(st)
	}
	sort.SliceStable(subs, func(a, b int) bool {
		return subs[a].Order < subs[b].Order
	})
	return subs
}

func (s *Store) setSubtaskStatus(st *Subtask, status Status) {
	if status == StatusCompleted {
		if st.Status != StatusCompleted || st.CompletedAt == nil {
			now := s.now()
			st.CompletedAt = &now
		}
	} else {
		st.CompletedAt = nil
	}
	st.Status = status
}

// prepareSubtasks fills in IDs, statuses and orders for subtasks about to be
// appended after existing.
func (s *Store) prepareSubtasks(existing, incoming []Subtask) ([]Subtask, error) {
	if len(incoming) == 0 {
		return incoming, nil
	}

	maxOrder := 0
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, st := range existing {
		seen[st.ID] = true
		if st.Order > maxOrder {
			maxOrder = st.Order
		}
	}

	out := make([]Subtask, len(incoming))
	for k, st := range incoming {
		st = cloneSubtask(st)
		if st.Name == "" {
			return nil, fmt.Errorf("subtask %d: %w", k+1, ErrEmptyName)
		}
		if st.ID == "" || seen[st.ID] {
			st.ID = s.newID()
		}
		seen[st.ID] = true

		if st.Status == "" {
			st.Status = StatusPending
		}
		if !st.Status.Valid() {
			return nil, fmt.Errorf("subtask %q: %w: %q", st.Name, ErrInvalidStatus, st.Status)
		}
		if st.Status == StatusCompleted && st.CompletedAt == nil {
			now := s.now()
			st.CompletedAt = &now
		}
		if st.Status != StatusCompleted {
			st.CompletedAt = nil
		}

		if st.Order <= 0 {
			st.Order = maxOrder + 1
		}
		if st.Order > maxOrder {
			maxOrder = st.Order
		}
		out[k] = st
	}
	return out, nil
}

func (s *Store) locateSubtask(taskID, subtaskID string) (int, int, error) {
	i := s.indexOf(taskID)
	if i < 0 {
		return -1, -1, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	for j, st := range s.tasks[i].Subtasks {
		if st.ID == subtaskID {
			return i, j, nil
		}
	}
	return -1, -1, fmt.Errorf("%w: %s", ErrSubtaskNotFound, subtaskID)
}
