// Copyright 2026 The Pulseboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

// MockRepository is an in-memory session.Repository for tests.
type MockRepository struct {
	sessions map[string]*Session
}

func NewMockRepository() *MockRepository {
	return &MockRepository{sessions: make(map[string]*Session)}
}

func (m *MockRepository) Create(ctx context.Context, sess *Session) error {
	cp := *sess
	m.sessions[sess.ID] = &cp
	return nil
}

func (m *MockRepository) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (m *MockRepository) Update(ctx context.Context, sess *Session) error {
	if _, ok := m.sessions[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	cp := *sess
	m.sessions[sess.ID] = &cp
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, sessionID string) error {
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockRepository) DeleteByUserID(ctx context.Context, userID string) error {
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func TestService_CreateAndGet(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "user-1", "203.0.113.9", "test-agent")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session must get an ID")
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Error("session must expire in the future")
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "user-1" || got.IPAddress != "203.0.113.9" {
		t.Errorf("session fields wrong: %+v", got)
	}
}

func TestService_GetUnknown(t *testing.T) {
	svc := NewService(NewMockRepository(), time.Hour, 30*time.Minute)

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestService_GetExpiredSessionIsRemoved(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	now := time.Now()
	repo.sessions["expired"] = &Session{
		ID:         "expired",
		UserID:     "user-1",
		ExpiresAt:  now.Add(-time.Minute),
		CreatedAt:  now.Add(-2 * time.Hour),
		LastSeenAt: now,
	}

	if _, err := svc.Get(ctx, "expired"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if _, ok := repo.sessions["expired"]; ok {
		t.Error("expired session must be removed from the store")
	}
}

func TestService_GetIdleSessionIsRemoved(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	now := time.Now()
	repo.sessions["idle"] = &Session{
		ID:         "idle",
		UserID:     "user-1",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now.Add(-2 * time.Hour),
		LastSeenAt: now.Add(-45 * time.Minute),
	}

	if _, err := svc.Get(ctx, "idle"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if _, ok := repo.sessions["idle"]; ok {
		t.Error("idle session must be removed from the store")
	}
}

func TestService_RefreshUpdatesLastSeen(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "user-1", "203.0.113.9", "test-agent")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	before := repo.sessions[sess.ID].LastSeenAt
	time.Sleep(5 * time.Millisecond)

	if err := svc.Refresh(ctx, sess.ID); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !repo.sessions[sess.ID].LastSeenAt.After(before) {
		t.Error("Refresh must advance LastSeenAt")
	}
}

func TestService_DeleteAllForUser(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, time.Hour, 30*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, "user-1", "203.0.113.9", "test-agent"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	other, err := svc.Create(ctx, "user-2", "203.0.113.10", "test-agent")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.DeleteAllForUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteAllForUser failed: %v", err)
	}
	if len(repo.sessions) != 1 {
		t.Errorf("expected only the other user's session to remain, got %d", len(repo.sessions))
	}
	if _, err := svc.Get(ctx, other.ID); err != nil {
		t.Errorf("other user's session should survive: %v", err)
	}
}
