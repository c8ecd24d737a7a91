package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/google/uuid"
)

// ErrInvalidTask is returned when a task title is blank.
var ErrInvalidTask = errors.New("task title must not be blank")

// TaskService manages the to-do list.
type TaskService struct {
	tasks repository.TaskRepository
	bus   events.Bus
}

// NewTaskService creates a new TaskService.
func NewTaskService(store *repository.Store, bus events.Bus) *TaskService {
	return &TaskService{tasks: store.Tasks, bus: bus}
}

// List returns tasks sorted by title, skipping completed ones when hideCompleted is set.
func (s *TaskService) List(ctx context.Context, hideCompleted bool) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx, model.TaskFilter{HideCompleted: hideCompleted})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Create adds an incomplete task with the given title.
func (s *TaskService) Create(ctx context.Context, title string) (*model.Task, error) {
	task := &model.Task{Title: strings.TrimSpace(title)}
	if !task.Valid() {
		return nil, ErrInvalidTask
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityTask, model.ActionCreated, task.ID))
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, task *model.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if !task.Valid() {
		return ErrInvalidTask
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityTask, model.ActionUpdated, task.ID))
	return nil
}

// Toggle flips the completion flag and returns the updated task.
func (s *TaskService) Toggle(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.Toggle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle task: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityTask, model.ActionUpdated, task.ID))
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityTask, model.ActionDeleted, id))
	return nil
}
