package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/planner/internal/logging"
	"github.com/JonMunkholm/planner/internal/notify"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	// MaxFileSize is the largest import accepted in bytes (default 5MB).
	MaxFileSize int64
	// ImportTimeout bounds one import including persistence (default 2m).
	ImportTimeout time.Duration
	// HeaderSearchRows is the default header search depth for imports.
	HeaderSearchRows int
	// ExtendedAliases turns on the looser hour headers for every import.
	ExtendedAliases bool
	// BaseURL is used for links in notifications.
	BaseURL string

	Limiter *ImportLimiter
	Mailer  notify.Mailer

	Now   func() time.Time
	NewID func() string
}

// DefaultMaxFileSize is the import size limit when Options sets none.
const DefaultMaxFileSize = 5 << 20

// DefaultImportTimeout is the import timeout when Options sets none.
const DefaultImportTimeout = 2 * time.Minute

// Service is the planner's business logic: projects, imports, task tracking,
// collaborators and the activity log. It is safe for concurrent use; writes to
// one project's plan are serialized so the plan always has a single writer.
type Service struct {
	repo    Repository
	mailer  notify.Mailer
	limiter *ImportLimiter
	opts    Options
	now     func() time.Time
	newID   func() string

	mu    sync.Mutex
	locks map[string]*projectLock
}

// projectLock is a per-project writer lock. refs counts holders and waiters
// so idle entries can be dropped from Service.locks.
type projectLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a Service on repo.
func NewService(repo Repository, opts Options) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = DefaultImportTimeout
	}
	if opts.Limiter == nil {
		opts.Limiter = NewImportLimiter(0, 0)
	}
	if opts.Mailer == nil {
		opts.Mailer = notify.LogMailer{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Service{
		repo:    repo,
		mailer:  opts.Mailer,
		limiter: opts.Limiter,
		opts:    opts,
		now:     opts.Now,
		newID:   opts.NewID,
		locks:   make(map[string]*projectLock),
	}
}

// Limiter returns the import limiter, for health output and shutdown draining.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// lockProject serializes writers of one project and returns the unlock func.
// The entry for id is removed once nobody holds or waits for it.
func (s *Service) lockProject(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &projectLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// openStore loads a project's plan into a Store.
func (s *Service) openStore(ctx context.Context, projectID string) (*taskstore.Store, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	plan, err := s.repo.LoadPlan(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return taskstore.New(plan.Tasks, plan.States,
		taskstore.WithClock(s.now),
		taskstore.WithIDGenerator(s.newID),
	), nil
}

// mutatePlan runs fn on the project's plan under the project lock and saves
// the result when fn succeeds.
func (s *Service) mutatePlan(ctx context.Context, projectID string, fn func(*taskstore.Store) error) error {
	unlock := s.lockProject(projectID)
	defer unlock()
	return s.mutatePlanLocked(ctx, projectID, fn)
}

// mutatePlanLocked is mutatePlan for callers already holding the project lock.
func (s *Service) mutatePlanLocked(ctx context.Context, projectID string, fn func(*taskstore.Store) error) error {
	store, err := s.openStore(ctx, projectID)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	if err := s.repo.SavePlan(ctx, projectID, Plan{Tasks: store.Tasks(), States: store.States()}); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// CreateProject stores a new project. The owner, when given, becomes its
// first collaborator.
func (s *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Project{}, ErrProjectNameRequired
	}
	if p.OwnerEmail == "" {
		p.OwnerEmail = ActorFromContext(ctx)
	}
	if p.OwnerEmail != "" {
		email, err := normalizeEmail(p.OwnerEmail)
		if err != nil {
			return Project{}, err
		}
		p.OwnerEmail = email
	}

	now := s.now().UTC()
	p.ID = s.newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	if p.OwnerEmail != "" {
		owner := Collaborator{ProjectID: p.ID, Email: p.OwnerEmail, Role: RoleOwner, AddedAt: now}
		if err := s.repo.AddCollaborator(ctx, owner); err != nil {
			return Project{}, fmt.Errorf("add owner: %w", err)
		}
	}

	logging.FromContext(ctx).Info("project created", "project_id", p.ID, "name", p.Name)
	s.recordActivity(ctx, ActivityParams{ProjectID: p.ID, Action: ActionProjectCreate, Subject: p.Name})
	return p, nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.repo.ListProjects(ctx)
}

// UpdateProject applies a patch to a project.
func (s *Service) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (Project, error) {
	unlock := s.lockProject(id)
	defer unlock()

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if err := applyProjectPatch(&p, patch); err != nil {
		return Project{}, err
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return Project{}, fmt.Errorf("update project: %w", err)
	}
	s.recordActivity(ctx, ActivityParams{ProjectID: id, Action: ActionProjectUpdate, Subject: p.Name})
	return p, nil
}

// DeleteProject removes a project with its plan and collaborators.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	unlock := s.lockProject(id)
	defer unlock()

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	logging.FromContext(ctx).Info("project deleted", "project_id", id)
	s.recordActivity(ctx, ActivityParams{ProjectID: id, Action: ActionProjectDelete, Subject: p.Name})
	return nil
}

func applyProjectPatch(p *Project, patch ProjectPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return ErrProjectNameRequired
		}
		p.Name = name
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.Description, patch.Description)
	setString(&p.InitialPrompt, patch.InitialPrompt)
	setString(&p.ProjectType, patch.ProjectType)
	setString(&p.ExperienceLevel, patch.ExperienceLevel)
	setString(&p.Lead, patch.Lead)
	setString(&p.Status, patch.Status)
	setString(&p.Timeline, patch.Timeline)
	if patch.Budget != nil {
		b := *patch.Budget
		p.Budget = &b
	}
	if patch.StartDate != nil {
		d := *patch.StartDate
		p.StartDate = &d
	}
	if patch.TargetEndDate != nil {
		d := *patch.TargetEndDate
		p.TargetEndDate = &d
	}
	return nil
}

func (s *Service) projectURL(id string) string {
	return s.opts.BaseURL + "/projects/" + id
}
