package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/choreista/platform_be_chores/internal/db/dbtest"
	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type sentCode struct{ to, code string }

type fakeMailer struct {
	mu       sync.Mutex
	codes    []sentCode
	contacts []string
	sendErr  error
}

func (m *fakeMailer) SendCode(ctx context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, sentCode{to, code})
	return m.sendErr
}

func (m *fakeMailer) AddContact(ctx context.Context, email, firstName, lastName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, email)
	return nil
}

func (m *fakeMailer) last() sentCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[len(m.codes)-1]
}

func newService(t *testing.T) (*AuthService, *fakeMailer) {
	t.Helper()
	m := &fakeMailer{}
	svc := NewAuthService(dbtest.Open(t), m, Config{JWTSecret: "test-secret", ExpiresMin: 60, BcryptCost: bcrypt.MinCost})
	return svc, m
}

func register(t *testing.T, svc *AuthService, email string) *Session {
	t.Helper()
	sess, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     email,
		Password:  "password123",
	})
	require.NoError(t, err)
	return sess
}

func sessionCount(t *testing.T, svc *AuthService, sess *Session) int64 {
	var n int64
	require.NoError(t, svc.DB.Model(&models.Session{}).Where("user_id = ?", sess.User.ID).Count(&n).Error)
	return n
}

func TestRegister(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()

	sess := register(t, svc, "  Ann@Example.com ")
	assert.Equal(t, "ann@example.com", sess.User.Email)
	assert.Equal(t, models.RoleWorker, sess.User.Role)
	assert.False(t, sess.User.IsVerified)
	assert.Len(t, sess.User.RegisterCode, utils.CodeLength)
	assert.Len(t, sess.User.ResetPasswordCode, utils.CodeLength)
	assert.NotEqual(t, "password123", sess.User.Password)
	assert.True(t, sess.User.Notifications.Data().Matches)
	assert.NotEmpty(t, sess.Token)

	assert.Equal(t, sentCode{"ann@example.com", sess.User.RegisterCode}, m.last())
	assert.Equal(t, []string{"ann@example.com"}, m.contacts)

	u, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)
}

func TestRegisterOwnerRole(t *testing.T) {
	svc, _ := newService(t)
	sess, err := svc.Register(context.Background(), RegisterInput{Email: "o@example.com", Password: "password123", Role: "choreowner"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleChoreOwner, sess.User.Role)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "password123", Role: "admin"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "", Password: "password123"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	_, err = svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "short"})
	require.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	assert.Contains(t, utils.AsAppError(err).Fields, "password")
}

func TestPasswordLongerThanBcryptAllows(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	long := strings.Repeat("p", utils.MaxPasswordBytes+1)

	_, err := svc.Register(ctx, RegisterInput{Email: "long@example.com", Password: long})
	require.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	assert.Equal(t, []string{"password must be at most 72 bytes"}, utils.AsAppError(err).Fields["password"])

	// multi-byte runes count by bytes, not characters
	_, err = svc.Register(ctx, RegisterInput{Email: "long@example.com", Password: strings.Repeat("é", 40)})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	register(t, svc, "ann@example.com")
	require.NoError(t, svc.SendResetCode(ctx, "ann@example.com"))
	_, err = svc.ResetPassword(ctx, ResetPasswordInput{Email: "ann@example.com", Code: m.last().code, Password: long})
	require.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	assert.Contains(t, utils.AsAppError(err).Fields, "password")

	_, err = svc.Register(ctx, RegisterInput{Email: "edge@example.com", Password: strings.Repeat("p", utils.MaxPasswordBytes)})
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "ann@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{Email: "ANN@example.com", Password: "password123"})
	require.True(t, utils.IsKind(err, utils.ErrCodeConflict))
	assert.Equal(t, "Email already exists", utils.AsAppError(err).Message)

	var n int64
	require.NoError(t, svc.DB.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	first := register(t, svc, "ann@example.com")

	_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	_, err = svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong-password"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))

	second, err := svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.EqualValues(t, 2, sessionCount(t, svc, first))

	for _, tok := range []string{first.Token, second.Token} {
		_, err := svc.Authenticate(ctx, tok)
		assert.NoError(t, err)
	}
}

func TestLogoutRemovesOnlyPresentedToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := register(t, svc, "ann@example.com")
	b, err := svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, a.Token))

	_, err = svc.Authenticate(ctx, a.Token)
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))
	_, err = svc.Authenticate(ctx, b.Token)
	assert.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, a.User.ID))
	_, err = svc.Authenticate(ctx, b.Token)
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))
	assert.EqualValues(t, 0, sessionCount(t, svc, a))
}

func TestAuthenticateRejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess := register(t, svc, "ann@example.com")

	_, err := svc.Authenticate(ctx, "")
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))

	_, err = svc.Authenticate(ctx, "not-a-jwt")
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))

	forged, err := utils.SignJWT("other-secret", sess.User.ID.String(), "worker", 60)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, forged)
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))

	// signed correctly but never issued as a session
	unknown, err := utils.SignJWT("test-secret", sess.User.ID.String(), "worker", 60)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, unknown)
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))
}

func TestConfirm(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess := register(t, svc, "ann@example.com")

	_, err := svc.Confirm(ctx, sess.User.ID, "")
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	_, err = svc.Confirm(ctx, sess.User.ID, "nope")
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	u, err := svc.Confirm(ctx, sess.User.ID, sess.User.RegisterCode)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	// single use
	_, err = svc.Confirm(ctx, sess.User.ID, sess.User.RegisterCode)
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	// the reset code confirms as well
	u, err = svc.Confirm(ctx, sess.User.ID, sess.User.ResetPasswordCode)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
}

func TestResendCode(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	sess := register(t, svc, "ann@example.com")

	u, err := svc.ResendCode(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, sentCode{"ann@example.com", u.RegisterCode}, m.last())

	_, err = svc.Confirm(ctx, sess.User.ID, u.RegisterCode)
	assert.NoError(t, err)
}

func TestSendResetCodeSurvivesMailFailure(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	register(t, svc, "ann@example.com")

	m.mu.Lock()
	m.sendErr = errors.New("smtp down")
	m.mu.Unlock()

	require.NoError(t, svc.SendResetCode(ctx, "ann@example.com"))
	code := m.last().code

	var stored models.User
	require.NoError(t, svc.DB.Where("email = ?", "ann@example.com").First(&stored).Error)
	assert.Equal(t, code, stored.ResetPasswordCode)

	_, err := svc.ResetPassword(ctx, ResetPasswordInput{Email: "ann@example.com", Code: code, Password: "new-password"})
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	svc, m := newService(t)
	ctx := context.Background()
	sess := register(t, svc, "ann@example.com")

	err := svc.SendResetCode(ctx, "missing@example.com")
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	require.NoError(t, svc.SendResetCode(ctx, "ANN@example.com"))
	code := m.last().code

	_, err = svc.ResetPassword(ctx, ResetPasswordInput{Email: "ann@example.com", Code: "000000x", Password: "new-password"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	reset, err := svc.ResetPassword(ctx, ResetPasswordInput{Email: "ann@example.com", Code: code, Password: "new-password"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth), "old sessions are revoked")
	_, err = svc.Authenticate(ctx, reset.Token)
	assert.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeAuth))
	_, err = svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "new-password"})
	assert.NoError(t, err)

	// the code cannot be replayed
	_, err = svc.ResetPassword(ctx, ResetPasswordInput{Email: "ann@example.com", Code: code, Password: "other-password"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))
}

func TestSignInWithEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.SignInWithEmail(ctx, "G@Example.com", "Gail", "Ng")
	require.NoError(t, err)
	assert.True(t, first.User.IsVerified)
	assert.Equal(t, "g@example.com", first.User.Email)

	second, err := svc.SignInWithEmail(ctx, "g@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Gail", second.User.FirstName)
}

func TestPurgeExpiredSessions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess := register(t, svc, "ann@example.com")

	n, err := svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	svc.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	n, err = svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 0, sessionCount(t, svc, sess))
}
