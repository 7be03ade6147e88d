package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/config"
	"github.com/dmitrijs2005/farmgate/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	store  *memStore
	mailer *fakeMailer
	clock  *clock
	otp    *OTPService
	sess   *SessionService
	auth   *AuthService
}

func newFixture(t *testing.T, limiter ratelimit.Limiter) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	db, mock := newSQLMockDB(t)
	f := &fixture{
		db:     db,
		mock:   mock,
		store:  newMemStore(),
		mailer: &fakeMailer{},
		clock:  newClock(),
	}
	rm := &fakeRepoManager{store: f.store}
	f.otp = NewOTPService(db, rm, f.mailer, limiter, cfg, logging.Discard())
	f.otp.now = f.clock.Now
	f.sess = NewSessionService(db, rm, cfg, logging.Discard())
	f.sess.now = f.clock.Now
	f.auth = NewAuthService(f.otp, f.sess, nil, logging.Discard())
	return f
}

func stubCodes(t *testing.T, codes ...string) {
	t.Helper()
	orig := generateCode
	i := 0
	generateCode = func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
	t.Cleanup(func() { generateCode = orig })
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.c", NormalizeEmail("  A@B.c \n"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("farmer@example.dz"))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("Name <a@b.c>"))
}

func TestIssue_CreatesUserAndSendsCode(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "042042")
	expectTx(f.mock, 1)

	require.NoError(t, f.otp.Issue(context.Background(), " Farmer@Example.com "))

	sent := f.mailer.last(t)
	assert.Equal(t, "farmer@example.com", sent.to)
	assert.Equal(t, "042042", sent.code)
	assert.Equal(t, 10*time.Minute, sent.validity)

	userID := f.store.byEmail["farmer@example.com"]
	require.NotEmpty(t, userID)
	live := f.store.otpsOf(userID)
	require.Len(t, live, 1)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), live[0].ExpiresAt)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestIssue_Twice_LeavesOneLiveCode(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "111111", "222222")
	expectTx(f.mock, 2)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))
	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))

	live := f.store.otpsOf(f.store.byEmail["a@b.c"])
	require.Len(t, live, 1)
	assert.Equal(t, "222222", live[0].Code)

	_, err := f.otp.Verify(ctx, "a@b.c", "111111")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)

	userID, err := f.otp.Verify(ctx, "a@b.c", "222222")
	require.NoError(t, err)
	assert.Equal(t, f.store.byEmail["a@b.c"], userID)
	f.otp.Wait()
}

func TestVerify_AtMostOnce(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 1)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))

	_, err := f.otp.Verify(ctx, "a@b.c", "123456")
	require.NoError(t, err)
	f.otp.Wait()

	_, err = f.otp.Verify(ctx, "a@b.c", "123456")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)
	assert.Empty(t, f.store.otpsOf(f.store.byEmail["a@b.c"]))
}

func TestVerify_SecondUseRejectedBeforeCleanup(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 1)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))

	hold := make(chan struct{})
	f.store.otpDeleteHold = hold
	t.Cleanup(func() { f.otp.Wait() })
	defer close(hold)

	_, err := f.otp.Verify(ctx, "a@b.c", "123456")
	require.NoError(t, err)

	_, err = f.otp.Verify(ctx, "a@b.c", "123456")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)
}

func TestVerify_ConcurrentCallsSucceedOnce(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 1)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))

	hold := make(chan struct{})
	f.store.otpDeleteHold = hold

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.otp.Verify(ctx, "a@b.c", "123456")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	close(hold)
	f.otp.Wait()

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, common.ErrInvalidOTP)
	}
	assert.Equal(t, 1, ok)
}

func TestVerify_RejectsWrongCodeEmailOrExpired(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 2)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))
	require.NoError(t, f.otp.Issue(ctx, "other@b.c"))

	_, err := f.otp.Verify(ctx, "a@b.c", "654321")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)

	_, err = f.otp.Verify(ctx, "nobody@b.c", "123456")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)

	f.clock.Advance(10 * time.Minute)
	_, err = f.otp.Verify(ctx, "a@b.c", "123456")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)
}

func TestVerify_JustBeforeExpiry(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 1)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))
	f.clock.Advance(10*time.Minute - time.Second)

	_, err := f.otp.Verify(ctx, "A@b.c", "123456")
	assert.NoError(t, err)
	f.otp.Wait()
}

func TestVerify_CleanupFailureIsNotReturned(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 1)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))

	f.store.otpDeleteErr = errors.New("db down")
	f.store.otpDeleteCalled = make(chan string, 1)

	cctx, cancel := context.WithCancel(ctx)
	userID, err := f.otp.Verify(cctx, "a@b.c", "123456")
	cancel()
	require.NoError(t, err)

	select {
	case got := <-f.store.otpDeleteCalled:
		assert.Equal(t, userID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run")
	}
	f.otp.Wait()
}

func TestIssue_Errors(t *testing.T) {
	t.Run("upsert", func(t *testing.T) {
		f := newFixture(t, nil)
		f.store.upsertErr = errors.New("db down")
		assert.ErrorIs(t, f.otp.Issue(context.Background(), "a@b.c"), common.ErrorInternal)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("code generation", func(t *testing.T) {
		f := newFixture(t, nil)
		orig := generateCode
		generateCode = func() (string, error) { return "", errors.New("no entropy") }
		t.Cleanup(func() { generateCode = orig })
		assert.ErrorIs(t, f.otp.Issue(context.Background(), "a@b.c"), common.ErrorInternal)
	})

	t.Run("store rolls back", func(t *testing.T) {
		f := newFixture(t, nil)
		stubCodes(t, "123456")
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()
		f.store.otpCreateErr = errors.New("insert failed")

		assert.ErrorIs(t, f.otp.Issue(context.Background(), "a@b.c"), common.ErrorInternal)
		assert.Empty(t, f.mailer.sent)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("begin", func(t *testing.T) {
		f := newFixture(t, nil)
		stubCodes(t, "123456")
		f.mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		assert.ErrorIs(t, f.otp.Issue(context.Background(), "a@b.c"), common.ErrorInternal)
	})

	t.Run("mail", func(t *testing.T) {
		f := newFixture(t, nil)
		stubCodes(t, "123456")
		expectTx(f.mock, 1)
		f.mailer.err = errors.New("smtp down")

		assert.ErrorIs(t, f.otp.Issue(context.Background(), "a@b.c"), common.ErrorInternal)
	})
}

func TestVerify_StorageError(t *testing.T) {
	f := newFixture(t, nil)
	f.store.otpFindErr = errors.New("db error: timeout")

	_, err := f.otp.Verify(context.Background(), "a@b.c", "123456")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestThrottling(t *testing.T) {
	f := newFixture(t, ratelimit.NewMemory(2, time.Hour))
	stubCodes(t, "123456")
	expectTx(f.mock, 2)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))
	require.NoError(t, f.otp.Issue(ctx, "A@B.C"))
	assert.ErrorIs(t, f.otp.Issue(ctx, "a@b.c"), common.ErrTooManyAttempts)

	_, err := f.otp.Verify(ctx, "a@b.c", "000000")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)
	_, err = f.otp.Verify(ctx, "a@b.c", "000001")
	assert.ErrorIs(t, err, common.ErrInvalidOTP)
	_, err = f.otp.Verify(ctx, "a@b.c", "123456")
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)
}

func TestOTPPurgeExpired(t *testing.T) {
	f := newFixture(t, nil)
	stubCodes(t, "123456")
	expectTx(f.mock, 1)
	ctx := context.Background()

	require.NoError(t, f.otp.Issue(ctx, "a@b.c"))

	n, err := f.otp.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(11 * time.Minute)
	n, err = f.otp.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
