package storage

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"

	"codeflow-api/domain"
)

// ErrNotFound is returned by KV backends for keys that were never written.
var ErrNotFound = errors.New("storage: key not found")

// KV is the generic key-value persistence capability backing the board.
// Values are JSON documents.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Logical collection keys. The prefix namespaces the board's data inside a
// shared store.
const (
	keyPrefix = "cf_"

	KeyUsers         = keyPrefix + "users"
	KeyToken         = keyPrefix + "token"
	KeyProjects      = keyPrefix + "projects"
	KeyActiveProject = keyPrefix + "activeProject"
	KeyTasks         = keyPrefix + "tasks"
	KeyActivity      = keyPrefix + "activity"
)

// Store layers typed collection access over a KV backend. Reads tolerate
// missing or corrupt data by returning the zero collection; a render must
// never fail because of a bad stored value.
type Store struct {
	kv KV
}

// New creates a Store over the given backend.
func New(kv KV) *Store {
	if kv == nil {
		panic("storage.New: nil backend")
	}
	return &Store{kv: kv}
}

func (s *Store) load(ctx context.Context, key string, out any) bool {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return false
	}
	return sonic.Unmarshal(data, out) == nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, data)
}

// Projects returns the stored project collection, oldest first.
func (s *Store) Projects(ctx context.Context) []domain.Project {
	var projects []domain.Project
	s.load(ctx, KeyProjects, &projects)
	return projects
}

// HasProjects reports whether a project collection has ever been written.
// Seeding keys off this, so an explicitly stored empty list still counts.
func (s *Store) HasProjects(ctx context.Context) bool {
	var projects []domain.Project
	return s.load(ctx, KeyProjects, &projects)
}

func (s *Store) SaveProjects(ctx context.Context, projects []domain.Project) error {
	return s.save(ctx, KeyProjects, projects)
}

// Tasks returns the stored task collection in storage order.
func (s *Store) Tasks(ctx context.Context) []domain.Task {
	var tasks []domain.Task
	s.load(ctx, KeyTasks, &tasks)
	return tasks
}

func (s *Store) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return s.save(ctx, KeyTasks, tasks)
}

// Activity returns the stored activity log, oldest first.
func (s *Store) Activity(ctx context.Context) []domain.ActivityEntry {
	var entries []domain.ActivityEntry
	s.load(ctx, KeyActivity, &entries)
	return entries
}

func (s *Store) SaveActivity(ctx context.Context, entries []domain.ActivityEntry) error {
	return s.save(ctx, KeyActivity, entries)
}

// Users returns the user registry keyed by email. The result is never nil.
func (s *Store) Users(ctx context.Context) map[string]domain.User {
	users := map[string]domain.User{}
	s.load(ctx, KeyUsers, &users)
	if users == nil {
		users = map[string]domain.User{}
	}
	return users
}

func (s *Store) SaveUsers(ctx context.Context, users map[string]domain.User) error {
	return s.save(ctx, KeyUsers, users)
}

// ActiveProject returns the active-project pointer, or "" when unset.
func (s *Store) ActiveProject(ctx context.Context) string {
	var id string
	s.load(ctx, KeyActiveProject, &id)
	return id
}

func (s *Store) SetActiveProject(ctx context.Context, id string) error {
	return s.save(ctx, KeyActiveProject, id)
}

// Token returns the persisted session credential, or "" when logged out.
func (s *Store) Token(ctx context.Context) string {
	var token string
	s.load(ctx, KeyToken, &token)
	return token
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.save(ctx, KeyToken, token)
}

func (s *Store) DeleteToken(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyToken)
}

// DeleteKey removes a logical collection outright. Used by reset.
func (s *Store) DeleteKey(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}
