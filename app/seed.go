package app

import (
	"context"
	"time"

	"codeflow-api/domain"
	"codeflow-api/storage"
)

const seedUser = "AS"

// EnsureSeed populates the demo projects, tasks, and activity on first run.
// It keys off the existence of the project collection, so it is idempotent.
func (s *Service) EnsureSeed(ctx context.Context) error {
	if s.store.HasProjects(ctx) {
		return nil
	}

	projects := []domain.Project{
		{ID: "p1", Name: "CipherOS", Color: "#16a34a"},
		{ID: "p2", Name: "NetScan Pro", Color: "#2563eb"},
		{ID: "p3", Name: "CodeFlow", Color: "#d97706"},
	}
	if err := s.store.SaveProjects(ctx, projects); err != nil {
		return err
	}
	if err := s.store.SetActiveProject(ctx, "p1"); err != nil {
		return err
	}

	tasks := []domain.Task{
		{ID: "t1", Project: "p1", Title: "Implement AES-256 encryption module", Desc: "Build the core encryption/decryption using Web Crypto API", Priority: domain.PriorityCritical, Status: domain.StatusDone, Tags: []string{"crypto", "backend"}, Assignee: "AS", Due: "2024-02-10"},
		{ID: "t2", Project: "p1", Title: "JWT token decoder", Desc: "Parse header, payload and display claims with timestamps", Priority: domain.PriorityHigh, Status: domain.StatusDone, Tags: []string{"auth"}, Assignee: "AS", Due: "2024-02-12"},
		{ID: "t3", Project: "p1", Title: "SHA-512 hash generator", Desc: "Add HMAC support with custom keys", Priority: domain.PriorityHigh, Status: domain.StatusInProgress, Tags: []string{"crypto"}, Assignee: "AS", Due: "2024-02-20"},
		{ID: "t4", Project: "p1", Title: "Password strength analyser", Desc: "Real-time entropy calculation with crack-time estimation", Priority: domain.PriorityMedium, Status: domain.StatusReview, Tags: []string{"security", "ux"}, Assignee: "AS", Due: "2024-02-22"},
		{ID: "t5", Project: "p1", Title: "Key generator module", Desc: "UUID v4, hex, base64, JWT secrets, and API keys", Priority: domain.PriorityMedium, Status: domain.StatusTodo, Tags: []string{"crypto"}, Assignee: "AS", Due: "2024-02-28"},
		{ID: "t6", Project: "p1", Title: "Write unit tests", Desc: "Test all crypto functions with known vectors", Priority: domain.PriorityLow, Status: domain.StatusTodo, Tags: []string{"testing"}, Assignee: "AS", Due: "2024-03-05"},
	}
	if err := s.store.SaveTasks(ctx, tasks); err != nil {
		return err
	}

	now := s.now().UnixMilli()
	day := (24 * time.Hour).Milliseconds()
	activity := []domain.ActivityEntry{
		{ID: "a1", User: seedUser, Kind: domain.ActionTaskCreated, Target: "Implement AES-256 encryption module", Time: now - 3*day},
		{ID: "a2", User: seedUser, Kind: domain.ActionTaskMoved, Target: "Implement AES-256 encryption module", From: domain.StatusReview, To: domain.StatusDone, Time: now - 2*day},
		{ID: "a3", User: seedUser, Kind: domain.ActionTaskCreated, Target: "JWT token decoder", Time: now - day},
		{ID: "a4", User: seedUser, Kind: domain.ActionTaskMoved, Target: "Password strength analyser", From: domain.StatusInProgress, To: domain.StatusReview, Time: now - time.Hour.Milliseconds()},
	}
	return s.store.SaveActivity(ctx, activity)
}

// ResetAll wipes the board collections and reseeds the demo content.
// Confirmation happens at the boundary.
func (s *Service) ResetAll(ctx context.Context) error {
	for _, key := range []string{storage.KeyTasks, storage.KeyProjects, storage.KeyActivity, storage.KeyActiveProject} {
		if err := s.store.DeleteKey(ctx, key); err != nil {
			return err
		}
	}
	s.log.Info("board data reset")
	return s.EnsureSeed(ctx)
}
