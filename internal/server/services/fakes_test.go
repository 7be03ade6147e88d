package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/dbx"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/otps"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/users"
)

// memStore backs the fake repositories. Failure fields make the matching
// operation return the error.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*models.UserWithInfo
	byEmail  map[string]string
	otps     map[string]*models.OneTimePassword
	sessions map[string]*models.Session

	upsertErr       error
	lockErr         error
	otpCreateErr    error
	otpDeleteErr    error
	otpFindErr      error
	sessCreateErr   error
	sessFindErr     error
	sessTouchErr    error
	sessDeleteErr   error
	getWithInfoErr  error
	otpDeleteCalled chan string
	// otpDeleteHold, when set, stalls DeleteByUser until it is closed.
	otpDeleteHold chan struct{}
	touches         int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.UserWithInfo{},
		byEmail:  map[string]string{},
		otps:     map[string]*models.OneTimePassword{},
		sessions: map[string]*models.Session{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) otpsOf(userID string) []*models.OneTimePassword {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.OneTimePassword
	for _, o := range m.otps {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}

func (m *memStore) session(id string) (*models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

type memUsers struct{ *memStore }

func (r memUsers) UpsertByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	if id, ok := r.byEmail[email]; ok {
		u := r.users[id].User
		return &u, nil
	}
	now := time.Now()
	u := &models.UserWithInfo{User: models.User{ID: r.nextID("user"), Email: email, CreatedAt: now, UpdatedAt: now}}
	r.users[u.ID] = u
	r.byEmail[email] = u.ID
	out := u.User
	return &out, nil
}

func (r memUsers) LockForUpdate(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockErr != nil {
		return r.lockErr
	}
	if _, ok := r.users[userID]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r memUsers) GetWithInfo(_ context.Context, userID string) (*models.UserWithInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getWithInfoErr != nil {
		return nil, r.getWithInfoErr
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

type memOTPs struct{ *memStore }

func (r memOTPs) Create(_ context.Context, o *models.OneTimePassword) (*models.OneTimePassword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.otpCreateErr != nil {
		return nil, r.otpCreateErr
	}
	for _, existing := range r.otps {
		if existing.UserID == o.UserID {
			return nil, fmt.Errorf("db error: duplicate key one_time_passwords_user_id_key")
		}
	}
	o.ID = r.nextID("otp")
	o.CreatedAt = time.Now()
	cp := *o
	r.otps[o.ID] = &cp
	return o, nil
}

func (r memOTPs) DeleteByUser(_ context.Context, userID string) (int64, error) {
	if r.otpDeleteHold != nil {
		<-r.otpDeleteHold
	}
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		if r.otpDeleteCalled != nil {
			r.otpDeleteCalled <- userID
		}
	}()
	if r.otpDeleteErr != nil {
		return 0, r.otpDeleteErr
	}
	var n int64
	for id, o := range r.otps {
		if o.UserID == userID {
			delete(r.otps, id)
			n++
		}
	}
	return n, nil
}

func (r memOTPs) ConsumeLive(_ context.Context, code, email string, now time.Time) (*models.OneTimePassword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.otpFindErr != nil {
		return nil, r.otpFindErr
	}
	userID, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	for _, o := range r.otps {
		if o.UserID == userID && o.Code == code && o.ExpiresAt.After(now) {
			delete(r.otps, o.ID)
			cp := *o
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memOTPs) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, o := range r.otps {
		if !o.ExpiresAt.After(now) {
			delete(r.otps, id)
			n++
		}
	}
	return n, nil
}

type memSessions struct{ *memStore }

func (r memSessions) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessCreateErr != nil {
		return r.sessCreateErr
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r memSessions) FindByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessFindErr != nil {
		return nil, r.sessFindErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r memSessions) UpdateLastVerifiedAt(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessTouchErr != nil {
		return r.sessTouchErr
	}
	if s, ok := r.sessions[id]; ok {
		s.LastVerifiedAt = at
		r.touches++
	}
	return nil
}

func (r memSessions) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessDeleteErr != nil {
		return r.sessDeleteErr
	}
	delete(r.sessions, id)
	return nil
}

func (r memSessions) PurgeCreatedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if !s.CreatedAt.After(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct{ store *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository            { return memUsers{m.store} }
func (m *fakeRepoManager) OTPs(dbx.DBTX) otps.Repository              { return memOTPs{m.store} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository      { return memSessions{m.store} }

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentOTP struct {
	to       string
	code     string
	validity time.Duration
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (f *fakeMailer) SendOTP(_ context.Context, to, code string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentOTP{to, code, validity})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentOTP {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no otp was sent")
	}
	return f.sent[len(f.sent)-1]
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// expectTx registers n successful transactions.
func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}
