package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/issuetracker/internal/model"
)

// memoryStore は結合テスト用のインメモリ永続化層。
// users・sessions・issuesの3つのリポジトリインターフェースを提供する。
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	sessions map[string]*model.Session
	issues   map[int64]*model.Issue
	nextID   int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[string]*model.User),
		sessions: make(map[string]*model.Session),
		issues:   make(map[int64]*model.Issue),
	}
}

type memoryUserRepo struct{ *memoryStore }
type memorySessionRepo struct{ *memoryStore }
type memoryIssueRepo struct{ *memoryStore }

func (r memoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r memoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r memoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return model.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r memorySessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r memorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r memorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r memoryIssueRepo) Create(_ context.Context, is *model.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	is.ID = r.nextID
	is.CreatedAt = time.Now().Add(time.Duration(r.nextID) * time.Millisecond)
	copied := *is
	r.issues[is.ID] = &copied
	return nil
}

func (r memoryIssueRepo) ListWithOwner(_ context.Context) ([]*model.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Issue, 0, len(r.issues))
	for _, is := range r.issues {
		out = append(out, r.withOwner(is))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryIssueRepo) FindByID(_ context.Context, id int64) (*model.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	is, ok := r.issues[id]
	if !ok {
		return nil, nil
	}
	return r.withOwner(is), nil
}

func (r memoryIssueRepo) Update(_ context.Context, id int64, patch model.IssuePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	is, ok := r.issues[id]
	if !ok {
		return nil
	}
	if patch.Title != nil {
		is.Title = *patch.Title
	}
	if patch.DescriptionSet {
		is.Description = patch.Description
	}
	if patch.Status != nil {
		is.Status = *patch.Status
	}
	if patch.Priority != nil {
		is.Priority = *patch.Priority
	}
	return nil
}

func (r memoryIssueRepo) DeleteByIDAndOwner(_ context.Context, id int64, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if is, ok := r.issues[id]; ok && is.UserID == ownerID {
		delete(r.issues, id)
	}
	return nil
}

// withOwner はmuを保持した状態で呼ぶこと。
func (r memoryIssueRepo) withOwner(is *model.Issue) *model.Issue {
	copied := *is
	if u, ok := r.users[is.UserID]; ok {
		copied.Owner = &model.IssueOwner{ID: u.ID, Email: u.Email}
	}
	return &copied
}
