package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/planner/internal/taskstore"
)

// GetPlan returns the project's tasks with their state, hours and progress.
func (s *Service) GetPlan(ctx context.Context, projectID string) (*PlanView, error) {
	store, err := s.openStore(ctx, projectID)
	if err != nil {
		return nil, err
	}

	tasks := store.Tasks()
	states := store.States()
	view := &PlanView{
		ProjectID: projectID,
		Tasks:     make([]TaskView, 0, len(tasks)),
		Totals:    store.Totals(),
	}
	for _, t := range tasks {
		st := states[t.ID]
		t.Subtasks = taskstore.SortedSubtasks(t)
		view.Tasks = append(view.Tasks, TaskView{
			Task:     t,
			State:    st,
			Hours:    taskstore.CalculateTaskHours(t, &st),
			Progress: taskstore.SubtaskProgress(t),
		})
	}
	return view, nil
}

// PlanSummary returns the totals of a project's plan.
func (s *Service) PlanSummary(ctx context.Context, projectID string) (taskstore.Totals, error) {
	store, err := s.openStore(ctx, projectID)
	if err != nil {
		return taskstore.Totals{}, err
	}
	return store.Totals(), nil
}

// TaskHours returns the estimated hours of one task.
func (s *Service) TaskHours(ctx context.Context, projectID, taskID string) (float64, error) {
	store, err := s.openStore(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return store.TaskHours(taskID)
}

// TaskProgress returns the subtask completion of one task.
func (s *Service) TaskProgress(ctx context.Context, projectID, taskID string) (taskstore.Progress, error) {
	store, err := s.openStore(ctx, projectID)
	if err != nil {
		return taskstore.Progress{}, err
	}
	return store.Progress(taskID)
}

// CreateTask adds a task to the end of the plan.
func (s *Service) CreateTask(ctx context.Context, projectID string, t taskstore.Task) (taskstore.Task, error) {
	var added taskstore.Task
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		var err error
		added, err = store.AddTask(t)
		return err
	})
	if err != nil {
		return taskstore.Task{}, err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionTaskCreate, Subject: added.ID, Detail: added.Name})
	return added, nil
}

// UpdateTask applies a patch to a task.
func (s *Service) UpdateTask(ctx context.Context, projectID, taskID string, patch taskstore.TaskPatch) (taskstore.Task, error) {
	var updated taskstore.Task
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		var err error
		updated, err = store.UpdateTask(taskID, patch)
		return err
	})
	if err != nil {
		return taskstore.Task{}, err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionTaskUpdate, Subject: taskID})
	return updated, nil
}

// DeleteTask removes a task and its state.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID string) error {
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		return store.DeleteTask(taskID)
	})
	if err != nil {
		return err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionTaskDelete, Subject: taskID})
	return nil
}

// ReorderTasks puts the plan in the order of ids.
func (s *Service) ReorderTasks(ctx context.Context, projectID string, ids []string) error {
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		return store.ReorderTasks(ids)
	})
	if err != nil {
		return err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionTaskReorder, RowsAffected: len(ids)})
	return nil
}

// UpdateTaskState applies a patch to a task's tracked state.
func (s *Service) UpdateTaskState(ctx context.Context, projectID, taskID string, patch taskstore.StatePatch) (taskstore.TaskState, error) {
	var state taskstore.TaskState
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		var err error
		state, err = store.UpdateState(taskID, patch)
		return err
	})
	if err != nil {
		return taskstore.TaskState{}, err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionStateUpdate, Subject: taskID, Detail: string(state.Status)})
	return state, nil
}

// AddSubtasks appends subtasks to a task.
func (s *Service) AddSubtasks(ctx context.Context, projectID, taskID string, subs []taskstore.Subtask) ([]taskstore.Subtask, error) {
	var added []taskstore.Subtask
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		var err error
		added, err = store.AddSubtasks(taskID, subs)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionSubtaskCreate, Subject: taskID, RowsAffected: len(added)})
	return added, nil
}

// AddSubtask appends one subtask to a task.
func (s *Service) AddSubtask(ctx context.Context, projectID, taskID string, sub taskstore.Subtask) (taskstore.Subtask, error) {
	added, err := s.AddSubtasks(ctx, projectID, taskID, []taskstore.Subtask{sub})
	if err != nil {
		return taskstore.Subtask{}, err
	}
	return added[0], nil
}

// UpdateSubtask applies a patch to a subtask.
func (s *Service) UpdateSubtask(ctx context.Context, projectID, taskID, subtaskID string, patch taskstore.SubtaskPatch) (taskstore.Subtask, error) {
	var updated taskstore.Subtask
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		var err error
		updated, err = store.UpdateSubtask(taskID, subtaskID, patch)
		return err
	})
	if err != nil {
		return taskstore.Subtask{}, err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionSubtaskUpdate, Subject: subtaskID})
	return updated, nil
}

// DeleteSubtask removes a subtask.
func (s *Service) DeleteSubtask(ctx context.Context, projectID, taskID, subtaskID string) error {
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		return store.DeleteSubtask(taskID, subtaskID)
	})
	if err != nil {
		return err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionSubtaskDelete, Subject: subtaskID})
	return nil
}

// ReorderSubtasks orders a task's subtasks as ids.
func (s *Service) ReorderSubtasks(ctx context.Context, projectID, taskID string, ids []string) error {
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		return store.ReorderSubtasks(taskID, ids)
	})
	if err != nil {
		return err
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: projectID, Action: ActionSubtaskReorder, Subject: taskID, RowsAffected: len(ids)})
	return nil
}

// ToggleSubtask flips a subtask between completed and pending.
func (s *Service) ToggleSubtask(ctx context.Context, projectID, taskID, subtaskID string) (taskstore.Subtask, error) {
	var toggled taskstore.Subtask
	err := s.mutatePlan(ctx, projectID, func(store *taskstore.Store) error {
		var err error
		toggled, err = store.ToggleSubtask(taskID, subtaskID)
		return err
	})
	if err != nil {
		return taskstore.Subtask{}, err
	}
	s.recordActivity(ctx, ActivityParams{
		ProjectID: projectID,
		Action:    ActionSubtaskToggle,
		Subject:   subtaskID,
		Detail:    fmt.Sprintf("now %s", toggled.Status),
	})
	return toggled, nil
}
