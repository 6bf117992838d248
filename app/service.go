// Package app owns the board's domain mutations. The service is the sole
// writer of the project, task, and activity collections; projections read
// through it and never write back.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"codeflow-api/board"
	"codeflow-api/domain"
	"codeflow-api/session"
	"codeflow-api/storage"
)

// DemoPassword always authenticates, regardless of the stored hash.
// Deliberate demo behavior carried over from the original board.
const DemoPassword = "Demo1234!"

const fallbackActor = "User"

// Service orchestrates storage, sessions, and the activity log. Every
// mutator re-reads the persisted collection immediately before modifying
// it, persists the whole collection in a single write, and appends its
// activity entry before returning, so views always render committed state.
type Service struct {
	store    *storage.Store
	sessions *session.Manager
	log      *log.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires a Service over its collaborators.
func NewService(store *storage.Store, sessions *session.Manager, logger *log.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		log:      logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ---- auth ----

// Login authenticates email/password, auto-registering unseen emails with a
// name derived from the email's local part. On success the issued credential
// is persisted as the current session.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, "", ErrMissingFields
	}

	users := s.store.Users(ctx)
	user, ok := users[email]
	if !ok {
		user = domain.User{Email: email, Name: localPart(email), PasswordHash: domain.HashPassword(password)}
		users[email] = user
		if err := s.store.SaveUsers(ctx, users); err != nil {
			return domain.User{}, "", err
		}
	}

	if user.PasswordHash != domain.HashPassword(password) && password != DemoPassword {
		return domain.User{}, "", ErrBadPassword
	}

	credential, err := s.startSession(ctx, user)
	if err != nil {
		return domain.User{}, "", err
	}
	s.log.WithField("user", user.Email).Info("login")
	return user, credential, nil
}

// Register creates a new account and logs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return domain.User{}, "", ErrMissingFields
	}
	if len(password) < 8 {
		return domain.User{}, "", ErrShortPassword
	}

	users := s.store.Users(ctx)
	if _, exists := users[email]; exists {
		return domain.User{}, "", ErrEmailTaken
	}
	user := domain.User{Email: email, Name: name, PasswordHash: domain.HashPassword(password)}
	users[email] = user
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return domain.User{}, "", err
	}

	credential, err := s.startSession(ctx, user)
	if err != nil {
		return domain.User{}, "", err
	}
	s.log.WithField("user", user.Email).Info("register")
	return user, credential, nil
}

func (s *Service) startSession(ctx context.Context, user domain.User) (string, error) {
	credential, err := s.sessions.Issue(user.Email, user.Name)
	if err != nil {
		return "", err
	}
	if err := s.store.SetToken(ctx, credential); err != nil {
		return "", err
	}
	return credential, nil
}

// Logout deletes the persisted credential. The cleared state is not an error.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.DeleteToken(ctx)
}

// Restore rebuilds the current-user context from the persisted credential.
// Missing, malformed, or expired credentials mean logged out, never an error.
func (s *Service) Restore(ctx context.Context) (domain.User, bool) {
	credential := s.store.Token(ctx)
	if !s.sessions.Valid(credential) {
		return domain.User{}, false
	}
	claims := s.sessions.Parse(credential)
	if user, ok := s.store.Users(ctx)[claims.Subject]; ok {
		return user, true
	}
	// Registry entry may have been wiped; fall back to the claims.
	return domain.User{Email: claims.Subject, Name: claims.Name}, true
}

// UpdateSettings renames the account. Email is the identity key and cannot
// change.
func (s *Service) UpdateSettings(ctx context.Context, email, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, ErrMissingFields
	}
	users := s.store.Users(ctx)
	user, ok := users[email]
	if !ok {
		return domain.User{}, ErrMissingFields
	}
	user.Name = name
	users[email] = user
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return domain.User{}, err
	}
	s.record(ctx, name, domain.ActivityEntry{Kind: domain.ActionSettingsUpdated})
	return user, nil
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// ---- projects ----

// CreateProject appends a project, colors it from the fixed palette by
// creation count, and makes it active.
func (s *Service) CreateProject(ctx context.Context, actor, name string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, ErrNameRequired
	}
	projects := s.store.Projects(ctx)
	project := domain.Project{ID: s.newID(), Name: name, Color: domain.ProjectColor(len(projects))}
	projects = append(projects, project)
	if err := s.store.SaveProjects(ctx, projects); err != nil {
		return domain.Project{}, err
	}
	if err := s.store.SetActiveProject(ctx, project.ID); err != nil {
		return domain.Project{}, err
	}
	s.record(ctx, actor, domain.ActivityEntry{Kind: domain.ActionProjectCreated, Target: name})
	return project, nil
}

// SwitchProject moves the active-project pointer. The id is not checked for
// existence; a dangling pointer renders as an empty board.
func (s *Service) SwitchProject(ctx context.Context, id string) error {
	return s.store.SetActiveProject(ctx, id)
}

// Projects lists the stored projects along with the active id, falling back
// to the first project when the pointer is unset.
func (s *Service) Projects(ctx context.Context) ([]domain.Project, string) {
	projects := s.store.Projects(ctx)
	return projects, s.activeProject(ctx, projects)
}

func (s *Service) activeProject(ctx context.Context, projects []domain.Project) string {
	if id := s.store.ActiveProject(ctx); id != "" {
		return id
	}
	if len(projects) > 0 {
		return projects[0].ID
	}
	return ""
}

// ---- tasks ----

// TaskFields carries the validated values of the task form. Tags arrive as
// the raw comma separated string and are parsed here.
type TaskFields struct {
	Title    string
	Desc     string
	Priority domain.Priority
	Status   domain.Status
	Tags     string
	Assignee string
	Due      string
}

// CreateTask adds a task to the active project. Status defaults to the
// column the creation was invoked from (todo when unspecified).
func (s *Service) CreateTask(ctx context.Context, actor string, fields TaskFields) (domain.Task, error) {
	title := strings.TrimSpace(fields.Title)
	if title == "" {
		return domain.Task{}, ErrTitleRequired
	}
	if fields.Status == "" {
		fields.Status = domain.StatusTodo
	}
	if !fields.Status.Valid() {
		return domain.Task{}, ErrBadStatus
	}
	if fields.Priority == "" {
		fields.Priority = domain.PriorityMedium
	}
	if !fields.Priority.Valid() {
		return domain.Task{}, ErrBadPriority
	}

	task := domain.Task{
		ID:       s.newID(),
		Project:  s.activeProject(ctx, s.store.Projects(ctx)),
		Title:    title,
		Desc:     strings.TrimSpace(fields.Desc),
		Priority: fields.Priority,
		Status:   fields.Status,
		Tags:     domain.ParseTags(fields.Tags),
		Assignee: strings.TrimSpace(fields.Assignee),
		Due:      fields.Due,
	}
	tasks := s.store.Tasks(ctx)
	tasks = append(tasks, task)
	if err := s.store.SaveTasks(ctx, tasks); err != nil {
		return domain.Task{}, err
	}
	s.record(ctx, actor, domain.ActivityEntry{Kind: domain.ActionTaskCreated, Target: title})
	return task, nil
}

// UpdateTask merges the patch onto the stored task. An unknown id is a
// silent no-op.
func (s *Service) UpdateTask(ctx context.Context, actor, id string, patch domain.TaskPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrTitleRequired
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return ErrBadStatus
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return ErrBadPriority
	}

	tasks := s.store.Tasks(ctx)
	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		patch.Apply(&tasks[i])
		if err := s.store.SaveTasks(ctx, tasks); err != nil {
			return err
		}
		s.record(ctx, actor, domain.ActivityEntry{Kind: domain.ActionTaskUpdated, Target: tasks[i].Title})
		return nil
	}
	return nil
}

// DeleteTask removes the task. An unknown id is a silent no-op;
// confirmation happens at the boundary.
func (s *Service) DeleteTask(ctx context.Context, actor, id string) error {
	tasks := s.store.Tasks(ctx)
	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		title := tasks[i].Title
		tasks = append(tasks[:i], tasks[i+1:]...)
		if err := s.store.SaveTasks(ctx, tasks); err != nil {
			return err
		}
		s.record(ctx, actor, domain.ActivityEntry{Kind: domain.ActionTaskDeleted, Target: title})
		return nil
	}
	return nil
}

// MoveTask transitions a task between columns. Moving onto the current
// column is a no-op: nothing is written and nothing is logged.
func (s *Service) MoveTask(ctx context.Context, actor, id string, status domain.Status) error {
	if !status.Valid() {
		return ErrBadStatus
	}
	tasks := s.store.Tasks(ctx)
	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		if tasks[i].Status == status {
			return nil
		}
		from := tasks[i].Status
		tasks[i].Status = status
		if err := s.store.SaveTasks(ctx, tasks); err != nil {
			return err
		}
		s.record(ctx, actor, domain.ActivityEntry{
			Kind:   domain.ActionTaskMoved,
			Target: tasks[i].Title,
			From:   from,
			To:     status,
		})
		return nil
	}
	return nil
}

// ---- views ----

// Board projects the current task state into the four filtered columns.
func (s *Service) Board(ctx context.Context, filter board.Filter) []board.Column {
	tasks := s.store.Tasks(ctx)
	active := s.activeProject(ctx, s.store.Projects(ctx))
	return board.Snapshot(tasks, active, filter, s.now())
}

// Backlog projects the active project's tasks into the ordered table view.
func (s *Service) Backlog(ctx context.Context) []board.Row {
	tasks := s.store.Tasks(ctx)
	active := s.activeProject(ctx, s.store.Projects(ctx))
	return board.Backlog(tasks, active)
}

// ---- activity ----

// FeedItem is one rendered activity line.
type FeedItem struct {
	ID      string `json:"id"`
	User    string `json:"user"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
	TimeAgo string `json:"timeAgo"`
	Time    int64  `json:"time"`
}

// Feed returns the activity log newest first with relative time labels
// computed at render time.
func (s *Service) Feed(ctx context.Context) []FeedItem {
	entries := s.store.Activity(ctx)
	now := s.now()
	items := make([]FeedItem, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		items = append(items, FeedItem{
			ID:      e.ID,
			User:    e.User,
			Message: e.Message(),
			Target:  e.DisplayTarget(),
			TimeAgo: domain.TimeAgo(e.Time, now),
			Time:    e.Time,
		})
	}
	return items
}

// record appends an activity entry and trims the log to its fixed capacity,
// evicting from the front. Append failures are logged, not propagated: the
// mutation that triggered the entry has already committed.
func (s *Service) record(ctx context.Context, actor string, entry domain.ActivityEntry) {
	if actor == "" {
		actor = fallbackActor
	}
	entry.ID = s.newID()
	entry.User = actor
	entry.Time = s.now().UnixMilli()

	entries := s.store.Activity(ctx)
	entries = append(entries, entry)
	if overflow := len(entries) - domain.ActivityCap; overflow > 0 {
		entries = entries[overflow:]
	}
	if err := s.store.SaveActivity(ctx, entries); err != nil {
		s.log.WithError(err).Warn("activity append failed")
	}
}
