// Copyright (c) 2026 Keysmith. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/keysmith/internal/platform/apperr"
	"github.com/taibuivan/keysmith/internal/platform/mail"
	"github.com/taibuivan/keysmith/internal/platform/sec"
)

// # In-Memory Test Doubles

type memoryUserRepository struct {
	accounts map[string]*Account
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{accounts: make(map[string]*Account)}
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*Account, error) {
	if account, ok := r.accounts[id]; ok {
		return account, nil
	}
	return nil, apperr.NotFound("Account")
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, apperr.NotFound("Account not found with this email")
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*Account, error) {
	for _, account := range r.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return nil, apperr.NotFound("Account not found with this username")
}

func (r *memoryUserRepository) Create(_ context.Context, account *Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	if account, ok := r.accounts[userID]; ok {
		account.PasswordHash = newHash
		return nil
	}
	return apperr.NotFound("Account")
}

func (r *memoryUserRepository) SetActive(_ context.Context, userID string, active bool) error {
	if account, ok := r.accounts[userID]; ok {
		account.IsActive = active
		return nil
	}
	return apperr.NotFound("Account")
}

type memorySessionRepository struct {
	sessions map[string]*Session
}

func newMemorySessionRepository() *memorySessionRepository {
	return &memorySessionRepository{sessions: make(map[string]*Session)}
}

func (r *memorySessionRepository) Create(_ context.Context, session *Session) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *memorySessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked && session.ExpiresAt.After(time.Now()) {
			return session, nil
		}
	}
	return nil, apperr.NotFound("Session not found or expired")
}

func (r *memorySessionRepository) Revoke(_ context.Context, sessionID string) error {
	if session, ok := r.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (r *memorySessionRepository) RevokeAll(_ context.Context, userID string) error {
	for _, session := range r.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (r *memorySessionRepository) RevokeOthers(_ context.Context, userID, currentSessionID string) error {
	for _, session := range r.sessions {
		if session.UserID == userID && session.ID != currentSessionID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (r *memorySessionRepository) DeleteExpired(_ context.Context) error {
	for id, session := range r.sessions {
		if !session.ExpiresAt.After(time.Now()) {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memorySessionRepository) activeCount(userID string) int {
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && !session.IsRevoked {
			count++
		}
	}
	return count
}

type memoryTokenRepository struct {
	tokens map[string]string
}

func newMemoryTokenRepository() *memoryTokenRepository {
	return &memoryTokenRepository{tokens: make(map[string]string)}
}

func (r *memoryTokenRepository) Set(_ context.Context, token, userID string, _ time.Duration) error {
	r.tokens[token] = userID
	return nil
}

func (r *memoryTokenRepository) Get(_ context.Context, token string) (string, error) {
	if userID, ok := r.tokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Token is invalid or expired")
}

func (r *memoryTokenRepository) Delete(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

// stubTokenProvider returns a fixed access token without any signing.
type stubTokenProvider struct{}

func (stubTokenProvider) GenerateAccessToken(userID, _ string, _ time.Duration) (string, error) {
	return "access-token-for-" + userID, nil
}

// recordingSender captures outbound email instead of dispatching it.
type recordingSender struct {
	messages []mail.Message
}

func (s *recordingSender) Send(_ context.Context, message mail.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

// # Test Fixture

type serviceFixture struct {
	service      *Service
	users        *memoryUserRepository
	sessions     *memorySessionRepository
	resetTokens  *memoryTokenRepository
	verifyTokens *memoryTokenRepository
	outbox       *recordingSender
}

func newServiceFixture(options Options) *serviceFixture {
	fixture := &serviceFixture{
		users:        newMemoryUserRepository(),
		sessions:     newMemorySessionRepository(),
		resetTokens:  newMemoryTokenRepository(),
		verifyTokens: newMemoryTokenRepository(),
		outbox:       &recordingSender{},
	}

	if options.PublicBaseURL == "" {
		options.PublicBaseURL = "https://keysmith.test"
	}
	if options.MailSubjectTag == "" {
		options.MailSubjectTag = "[Keysmith]"
	}

	fixture.service = NewService(
		fixture.users,
		fixture.sessions,
		fixture.resetTokens,
		fixture.verifyTokens,
		stubTokenProvider{},
		sec.NewPasswordPolicy(8),
		fixture.outbox,
		options,
	)

	return fixture
}

// seedAccount registers an account directly through the service so its
// password hash is realistic.
func (fixture *serviceFixture) seedAccount(t *testing.T, username, email, password string) *Account {
	t.Helper()

	account, err := fixture.service.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return account
}

// detailCodes extracts the per-field violation codes from a validation error.
func detailCodes(t *testing.T, err error) []string {
	t.Helper()

	ae := apperr.As(err)
	require.NotNil(t, ae)

	codes := make([]string, 0, len(ae.Details))
	for _, detail := range ae.Details {
		codes = append(codes, detail.Code)
	}
	return codes
}

// # Registration

func TestService_Register(t *testing.T) {
	t.Run("success_creates_active_account", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: false})

		account, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "tai",
			Email:           "tai@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "sturdy-pass-1",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, account.ID)
		assert.True(t, account.IsActive)

		// Stored hash verifies; plaintext is never stored.
		stored := fixture.users.accounts[account.ID]
		assert.NotEqual(t, "sturdy-pass-1", stored.PasswordHash)
		assert.True(t, sec.CheckPasswordHash("sturdy-pass-1", stored.PasswordHash))

		// Without confirmation policy, no email is dispatched.
		assert.Empty(t, fixture.outbox.messages)
	})

	t.Run("password_mismatch_rejected_before_any_write", func(t *testing.T) {
		fixture := newServiceFixture(Options{})

		_, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "tai",
			Email:           "tai@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "different-pass",
		})

		require.Error(t, err)
		assert.Contains(t, detailCodes(t, err), CodePasswordMismatch)
		assert.Empty(t, fixture.users.accounts)
	})

	t.Run("weak_password_reports_every_violation", func(t *testing.T) {
		fixture := newServiceFixture(Options{})

		// Short AND entirely numeric.
		_, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "tai",
			Email:           "tai@example.com",
			Password:        "1234",
			PasswordConfirm: "1234",
		})

		require.Error(t, err)
		codes := detailCodes(t, err)
		assert.Contains(t, codes, sec.CodePasswordTooShort)
		assert.Contains(t, codes, sec.CodePasswordEntirelyNumeric)
		assert.Empty(t, fixture.users.accounts)
	})

	t.Run("duplicate_email_conflicts", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		fixture.seedAccount(t, "first", "taken@example.com", "sturdy-pass-1")

		_, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "second",
			Email:           "taken@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "sturdy-pass-1",
		})

		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	})

	t.Run("duplicate_username_conflicts", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		fixture.seedAccount(t, "taken", "first@example.com", "sturdy-pass-1")

		_, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "taken",
			Email:           "second@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "sturdy-pass-1",
		})

		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	})

	t.Run("confirmation_policy_creates_inactive_account_and_emails_token", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: true})

		account, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "tai",
			Email:           "tai@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "sturdy-pass-1",
		})

		require.NoError(t, err)
		assert.False(t, account.IsActive)

		// Exactly one confirmation email to the registered address.
		require.Len(t, fixture.outbox.messages, 1)
		assert.Equal(t, "tai@example.com", fixture.outbox.messages[0].To)
		assert.Contains(t, fixture.outbox.messages[0].Subject, "Confirm")

		// The emailed token is bound to the new account.
		require.Len(t, fixture.verifyTokens.tokens, 1)
		for _, userID := range fixture.verifyTokens.tokens {
			assert.Equal(t, account.ID, userID)
		}
	})
}

// # Login

func TestService_Login(t *testing.T) {
	t.Run("success_issues_tokens_and_session", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

		session, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai",
			Password: "sturdy-pass-1",
		})

		require.NoError(t, err)
		assert.Equal(t, "access-token-for-"+account.ID, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.Equal(t, 1, fixture.sessions.activeCount(account.ID))
	})

	t.Run("unknown_user_and_wrong_password_are_indistinguishable", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

		_, unknownErr := fixture.service.Login(context.Background(), LoginInput{
			Username: "nobody",
			Password: "sturdy-pass-1",
		})
		_, wrongErr := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai",
			Password: "wrong-password",
		})

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)

		unknownApp := apperr.As(unknownErr)
		wrongApp := apperr.As(wrongErr)
		assert.Equal(t, CodeInvalidLogin, unknownApp.Code)
		assert.Equal(t, CodeInvalidLogin, wrongApp.Code)
		assert.Equal(t, unknownApp.Message, wrongApp.Message)
		assert.Equal(t, unknownApp.HTTPStatus, wrongApp.HTTPStatus)
	})

	t.Run("inactive_account_gets_distinct_code", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: true})
		fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

		_, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai",
			Password: "sturdy-pass-1",
		})

		require.Error(t, err)
		assert.Equal(t, CodeInactive, apperr.As(err).Code)
	})

	t.Run("failed_login_creates_no_session", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

		_, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai",
			Password: "wrong-password",
		})

		require.Error(t, err)
		assert.Equal(t, 0, fixture.sessions.activeCount(account.ID))
	})
}

// # Logout & Session Rotation

func TestService_Logout(t *testing.T) {
	fixture := newServiceFixture(Options{})
	account := fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

	session, err := fixture.service.Login(context.Background(), LoginInput{
		Username: "tai",
		Password: "sturdy-pass-1",
	})
	require.NoError(t, err)

	// First logout revokes the session.
	require.NoError(t, fixture.service.Logout(context.Background(), session.RefreshToken))
	assert.Equal(t, 0, fixture.sessions.activeCount(account.ID))

	// Second logout with the same (now dead) token still succeeds.
	assert.NoError(t, fixture.service.Logout(context.Background(), session.RefreshToken))

	// Unknown token is also fine.
	assert.NoError(t, fixture.service.Logout(context.Background(), "never-issued"))
}

func TestService_RefreshSession(t *testing.T) {
	t.Run("rotation_revokes_old_token", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

		original, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai",
			Password: "sturdy-pass-1",
		})
		require.NoError(t, err)

		rotated, err := fixture.service.RefreshSession(context.Background(), original.RefreshToken, "", "")
		require.NoError(t, err)
		assert.NotEqual(t, original.RefreshToken, rotated.RefreshToken)

		// Replaying the original refresh token must fail.
		_, err = fixture.service.RefreshSession(context.Background(), original.RefreshToken, "", "")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("invalid_token_rejected", func(t *testing.T) {
		fixture := newServiceFixture(Options{})

		_, err := fixture.service.RefreshSession(context.Background(), "never-issued", "", "")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})
}

// # Password Recovery

func TestService_RequestPasswordReset(t *testing.T) {
	t.Run("unknown_email_silently_succeeds", func(t *testing.T) {
		fixture := newServiceFixture(Options{})

		err := fixture.service.RequestPasswordReset(context.Background(), "ghost@example.com")

		require.NoError(t, err)
		assert.Empty(t, fixture.outbox.messages)
		assert.Empty(t, fixture.resetTokens.tokens)
	})

	t.Run("known_email_dispatches_exactly_one_email", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "sturdy-pass-1")

		err := fixture.service.RequestPasswordReset(context.Background(), "tai@example.com")
		require.NoError(t, err)

		require.Len(t, fixture.outbox.messages, 1)
		assert.Equal(t, "tai@example.com", fixture.outbox.messages[0].To)

		require.Len(t, fixture.resetTokens.tokens, 1)
		for token, userID := range fixture.resetTokens.tokens {
			assert.Equal(t, account.ID, userID)
			assert.Contains(t, fixture.outbox.messages[0].Body, token)
		}
	})
}

func TestService_ResetPassword(t *testing.T) {
	// issueResetToken runs the forgot-password flow and returns the token.
	issueResetToken := func(t *testing.T, fixture *serviceFixture, email string) string {
		t.Helper()
		require.NoError(t, fixture.service.RequestPasswordReset(context.Background(), email))
		require.Len(t, fixture.resetTokens.tokens, 1)
		for token := range fixture.resetTokens.tokens {
			return token
		}
		return ""
	}

	t.Run("success_updates_password_and_revokes_sessions", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")

		_, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai",
			Password: "old-pass-word",
		})
		require.NoError(t, err)

		token := issueResetToken(t, fixture, "tai@example.com")

		err = fixture.service.ResetPassword(context.Background(), token, "brand-new-pass", "brand-new-pass")
		require.NoError(t, err)

		// New password verifies, old one does not.
		stored := fixture.users.accounts[account.ID]
		assert.True(t, sec.CheckPasswordHash("brand-new-pass", stored.PasswordHash))
		assert.False(t, sec.CheckPasswordHash("old-pass-word", stored.PasswordHash))

		// Every session was revoked.
		assert.Equal(t, 0, fixture.sessions.activeCount(account.ID))
	})

	t.Run("token_is_single_use", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")
		token := issueResetToken(t, fixture, "tai@example.com")

		require.NoError(t, fixture.service.ResetPassword(context.Background(), token, "brand-new-pass", "brand-new-pass"))

		// Replaying the consumed token fails.
		err := fixture.service.ResetPassword(context.Background(), token, "another-new-pass", "another-new-pass")
		require.Error(t, err)
		assert.Contains(t, detailCodes(t, err), "invalid")
	})

	t.Run("mismatch_checked_before_token_is_consumed", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")
		token := issueResetToken(t, fixture, "tai@example.com")

		err := fixture.service.ResetPassword(context.Background(), token, "brand-new-pass", "different-pass")
		require.Error(t, err)
		assert.Contains(t, detailCodes(t, err), CodePasswordMismatch)

		// The token survives a rejected attempt and the password is unchanged.
		assert.Len(t, fixture.resetTokens.tokens, 1)
		assert.True(t, sec.CheckPasswordHash("old-pass-word", fixture.users.accounts[account.ID].PasswordHash))
	})

	t.Run("weak_password_rejected_before_token_is_consumed", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")
		token := issueResetToken(t, fixture, "tai@example.com")

		err := fixture.service.ResetPassword(context.Background(), token, "1234", "1234")
		require.Error(t, err)
		codes := detailCodes(t, err)
		assert.Contains(t, codes, sec.CodePasswordTooShort)
		assert.Contains(t, codes, sec.CodePasswordEntirelyNumeric)

		// Token survives; password unchanged.
		assert.Len(t, fixture.resetTokens.tokens, 1)
		assert.True(t, sec.CheckPasswordHash("old-pass-word", fixture.users.accounts[account.ID].PasswordHash))
	})

	t.Run("invalid_token_rejected", func(t *testing.T) {
		fixture := newServiceFixture(Options{})

		err := fixture.service.ResetPassword(context.Background(), "never-issued", "brand-new-pass", "brand-new-pass")
		require.Error(t, err)
		assert.Contains(t, detailCodes(t, err), "invalid")
	})
}

// # Password Change

func TestService_ChangePassword(t *testing.T) {
	t.Run("success_rotates_other_sessions", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")

		current, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai", Password: "old-pass-word",
		})
		require.NoError(t, err)

		other, err := fixture.service.Login(context.Background(), LoginInput{
			Username: "tai", Password: "old-pass-word",
		})
		require.NoError(t, err)

		err = fixture.service.ChangePassword(context.Background(),
			account.ID, "old-pass-word", "brand-new-pass", "brand-new-pass", current.RefreshToken)
		require.NoError(t, err)

		// New password verifies.
		assert.True(t, sec.CheckPasswordHash("brand-new-pass", fixture.users.accounts[account.ID].PasswordHash))

		// The current session survives; the other device is cut off.
		_, err = fixture.sessions.FindByTokenHash(context.Background(), sec.HashToken(current.RefreshToken))
		assert.NoError(t, err)
		_, err = fixture.sessions.FindByTokenHash(context.Background(), sec.HashToken(other.RefreshToken))
		assert.Error(t, err)
	})

	t.Run("wrong_current_password_rejected", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")

		err := fixture.service.ChangePassword(context.Background(),
			account.ID, "not-my-password", "brand-new-pass", "brand-new-pass", "")

		require.Error(t, err)
		assert.Contains(t, detailCodes(t, err), CodePasswordIncorrect)

		// Password unchanged.
		assert.True(t, sec.CheckPasswordHash("old-pass-word", fixture.users.accounts[account.ID].PasswordHash))
	})

	t.Run("new_password_pair_must_pass_policy", func(t *testing.T) {
		fixture := newServiceFixture(Options{})
		account := fixture.seedAccount(t, "tai", "tai@example.com", "old-pass-word")

		err := fixture.service.ChangePassword(context.Background(),
			account.ID, "old-pass-word", "1234", "1234", "")

		require.Error(t, err)
		codes := detailCodes(t, err)
		assert.Contains(t, codes, sec.CodePasswordTooShort)
		assert.Contains(t, codes, sec.CodePasswordEntirelyNumeric)
	})
}

// # Email Confirmation

func TestService_VerifyEmail(t *testing.T) {
	// registerPending creates an inactive account and returns it with its
	// confirmation token.
	registerPending := func(t *testing.T, fixture *serviceFixture) (*Account, string) {
		t.Helper()

		account, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "tai",
			Email:           "tai@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "sturdy-pass-1",
		})
		require.NoError(t, err)
		require.Len(t, fixture.verifyTokens.tokens, 1)

		for token := range fixture.verifyTokens.tokens {
			return account, token
		}
		return account, ""
	}

	t.Run("success_activates_account_once", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: true})
		account, token := registerPending(t, fixture)

		require.NoError(t, fixture.service.VerifyEmail(context.Background(), account.ID, token))
		assert.True(t, fixture.users.accounts[account.ID].IsActive)

		// The token is consumed — replaying it fails.
		err := fixture.service.VerifyEmail(context.Background(), account.ID, token)
		require.Error(t, err)
	})

	t.Run("unknown_uid_rejected_without_state_change", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: true})
		account, token := registerPending(t, fixture)

		err := fixture.service.VerifyEmail(context.Background(), "01890000-0000-7000-8000-000000000000", token)
		require.Error(t, err)
		assert.False(t, fixture.users.accounts[account.ID].IsActive)
		assert.Len(t, fixture.verifyTokens.tokens, 1)
	})

	t.Run("token_bound_to_other_account_rejected", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: true})
		account, token := registerPending(t, fixture)

		// A second pending account.
		other, err := fixture.service.Register(context.Background(), RegisterInput{
			Username:        "other",
			Email:           "other@example.com",
			Password:        "sturdy-pass-1",
			PasswordConfirm: "sturdy-pass-1",
		})
		require.NoError(t, err)

		// Redeeming account A's token against account B fails for both.
		err = fixture.service.VerifyEmail(context.Background(), other.ID, token)
		require.Error(t, err)
		assert.False(t, fixture.users.accounts[account.ID].IsActive)
		assert.False(t, fixture.users.accounts[other.ID].IsActive)
	})

	t.Run("unknown_token_rejected", func(t *testing.T) {
		fixture := newServiceFixture(Options{RequireEmailConfirmation: true})
		account, _ := registerPending(t, fixture)

		err := fixture.service.VerifyEmail(context.Background(), account.ID, "never-issued")
		require.Error(t, err)
		assert.False(t, fixture.users.accounts[account.ID].IsActive)
	})
}
