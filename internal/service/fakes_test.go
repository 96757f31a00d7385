package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/recovery/internal/model"
	"github.com/quocanhngo/recovery/internal/repository"
)

type fakeAccountStore struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*model.Account
	findErr   error
	updateErr error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{byID: map[uuid.UUID]*model.Account{}}
}

func (f *fakeAccountStore) add(email, hash string) *model.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := &model.Account{ID: uuid.New(), Name: "Tester", Email: email, Password: hash}
	f.byID[account.ID] = account
	return account
}

func (f *fakeAccountStore) Create(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == account.Email {
			return repository.ErrEmailTaken
		}
	}
	copied := *account
	f.byID[account.ID] = &copied
	return nil
}

func (f *fakeAccountStore) FindByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccountStore) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, a := range f.byID {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (f *fakeAccountStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	now := time.Now()
	a.Password = hash
	a.PasswordChangedAt = &now
	return nil
}

type sentCode struct {
	email string
	code  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *fakeNotifier) SendRecoveryCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentCode{email: email, code: code})
	return nil
}

func (n *fakeNotifier) last() (sentCode, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentCode{}, false
	}
	return n.sent[len(n.sent)-1], true
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeLimiter struct {
	err error
}

func (l *fakeLimiter) Allow(context.Context, string) error {
	return l.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fixedCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}
