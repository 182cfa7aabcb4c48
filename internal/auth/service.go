// Copyright (c) 2026 Keysmith. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/keysmith/internal/platform/apperr"
	"github.com/taibuivan/keysmith/internal/platform/ctxutil"
	"github.com/taibuivan/keysmith/internal/platform/mail"
	"github.com/taibuivan/keysmith/internal/platform/sec"
	"github.com/taibuivan/keysmith/internal/platform/validate"
	"github.com/taibuivan/keysmith/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating signed access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - username: The username of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, username string, timeToLive time.Duration) (string, error)
}

// PasswordPolicy defines the contract for password strength evaluation.
type PasswordPolicy interface {
	// Validate returns every violated strength rule for the candidate.
	// An empty slice means the password is acceptable.
	Validate(plaintext string) []sec.PasswordViolation
}

// Options holds the account lifecycle policy the service must honor.
type Options struct {
	// RequireEmailConfirmation controls whether new accounts start inactive
	// and must redeem an emailed confirmation token before they can log in.
	RequireEmailConfirmation bool

	// PublicBaseURL is the externally reachable URL used to build the links
	// embedded in reset and confirmation emails.
	PublicBaseURL string

	// MailSubjectTag is prepended to every outbound subject line.
	MailSubjectTag string
}

// Service implements the credential-verification and password-lifecycle
// workflows.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	userRepository              UserRepository
	sessionRepository           SessionRepository
	resetTokenRepository        TokenRepository
	confirmationTokenRepository TokenRepository
	tokenProvider               TokenProvider
	passwordPolicy              PasswordPolicy
	mailSender                  mail.Sender
	options                     Options
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo TokenRepository,
	confirmRepo TokenRepository,
	tokenProv TokenProvider,
	policy PasswordPolicy,
	sender mail.Sender,
	options Options,
) *Service {
	return &Service{
		userRepository:              userRepo,
		sessionRepository:           sessionRepo,
		resetTokenRepository:        resetRepo,
		confirmationTokenRepository: confirmRepo,
		tokenProvider:               tokenProv,
		passwordPolicy:              policy,
		mailSender:                  sender,
		options:                     options,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
//
// PasswordConfirm exists only to catch transcription mistakes; it is compared
// against Password and then discarded.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

/*
Register validates, hashes, and persists a brand new account.

Description: Validate-then-create — every check runs before any write, so a
rejected registration leaves no partial account behind. The new account's
active flag follows the email confirmation policy.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Account: Created entity
  - err: Validation, Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Account, error) {

	// Field-level validation: required fields, email shape, password pair,
	// strength policy. All violations are collected into a single response.
	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 30).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Custom(FieldPasswordConfirm, input.Password != input.PasswordConfirm,
			CodePasswordMismatch, "2 passwords should be equal")

	for _, violation := range service.passwordPolicy.Validate(input.Password) {
		validator.Violation(FieldPassword, violation.Code, violation.Message)
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err = service.userRepository.FindByUsername(context, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new Account. Time-sortable ID to prevent PG index
	// fragmentation. When confirmation is required the account starts
	// inactive and cannot authenticate until the emailed token is redeemed.
	account := &Account{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		IsActive:     !service.options.RequireEmailConfirmation,
	}

	// Persist the account to the database
	if err := service.userRepository.Create(context, account); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// Hand off to the confirmation flow. The account already exists, so a
	// failed dispatch is logged rather than failing the registration — the
	// confirmation email can be re-sent out of band.
	if service.options.RequireEmailConfirmation {
		if err := service.sendConfirmationEmail(context, account); err != nil {
			ctxutil.GetLogger(context).ErrorContext(context,
				"auth_confirmation_email_failed", "user_id", account.ID, "error", err)
		}
	}

	return account, nil
}

// sendConfirmationEmail issues a confirmation token bound to the account and
// dispatches the activation link to the account's email address.
func (service *Service) sendConfirmationEmail(context context.Context, account *Account) error {
	token, err := sec.GenerateSecureToken(ConfirmationTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_confirmation_token_failed: %w", err)
	}

	if err := service.confirmationTokenRepository.Set(context, token, account.ID, ConfirmationTokenTTL); err != nil {
		return fmt.Errorf("auth_service_save_confirmation_token_failed: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email?uid=%s&token=%s",
		service.options.PublicBaseURL, account.ID, token)

	return service.mailSender.Send(context, mail.Message{
		To:      account.Email,
		Subject: service.options.MailSubjectTag + " Confirm your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\n"+
				"The link expires in %d hours. If you did not create this account, ignore this email.\n",
			account.Username, link, int(ConfirmationTokenTTL.Hours())),
	})
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Account               *Account
}

/*
Login validates credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
enforces the account-active policy, and initializes a new session.

The state machine is strict: Unauthenticated → Authenticated only when the
credentials match AND the account is active. Any failure keeps the caller
unauthenticated with no side effects.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: invalid_login / inactive or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// Look up by username. A miss and a wrong password produce the exact
	// same error below to prevent username enumeration.
	account, err := service.userRepository.FindByUsername(context, input.Username)
	if err != nil {
		return nil, apperr.AuthFailed(CodeInvalidLogin, msgInvalidLogin)
	}

	// Verify password hash using bcrypt's constant-time comparison to
	// prevent timing attacks.
	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		return nil, apperr.AuthFailed(CodeInvalidLogin, msgInvalidLogin)
	}

	// Credentials matched, but the account has not been activated. The
	// distinct code is part of the API contract; see CodeInactive.
	if !account.IsActive {
		return nil, apperr.AuthFailed(CodeInactive, "This account is inactive.")
	}

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(account.ID, account.Username, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Create and persist the tracking session
	expiresAt := time.Now().Add(RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    account.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		Account:               account,
	}, nil
}

// msgInvalidLogin is shared by the "no such user" and "wrong password"
// branches so that the responses are byte-identical.
const msgInvalidLogin = "Please enter a correct username and password. " +
	"Note that both fields may be case-sensitive."

/*
Logout permanently revokes the caller's active session.

Description: Ensures that a tracked refresh token can never be used again.
Logout of an unknown or already-revoked token succeeds (idempotent).

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {

	// Hash the refresh token
	tokenHash := sec.HashToken(refreshToken)

	// Find the session by token hash
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) session is already gone or invalid, we consider logout successful (idempotent operation).
	if err != nil {
		return nil
	}

	// If (err == nil) Revoke the session
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// # Session Management

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Verifies the existing refresh token, revokes it to prevent reuse
(replay attack mitigation), and issues a fresh pair of rotated tokens.

Parameters:
  - context: context.Context
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *LoginSession: New session credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {

	// Hash the incoming refresh token to look it up
	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) the token is either expired, already revoked, or completely invalid.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: Revoke the old session to prevent replay attacks
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}

	// Fetch the account associated with this session. Deactivated accounts
	// cannot rotate their way back in.
	account, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil || !account.IsActive {
		return nil, apperr.Unauthorized("Account not found or deactivated")
	}

	// Generate a fresh Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(account.ID, account.Username, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	// Generate a fresh Refresh Token for the rotation
	newRefreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_secure_token_failed: %w", err)
	}

	// Persist the new session
	expiresAt := time.Now().Add(RefreshTokenTTL)
	newSession := &Session{
		ID:        uuid.New(),
		UserID:    account.ID,
		TokenHash: sec.HashToken(newRefreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, newSession); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresAt: expiresAt,
		Account:               account,
	}, nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Issues a single-use reset token and emails the reset link to the
account's address. An unknown email reports success with zero side effects —
the response must be indistinguishable from the known-email case to prevent
account enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Token issuance or dispatch failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {

	// Look up the account.
	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	account, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return nil
	}

	// Generate reset token
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	// Save to Redis with the reset TTL
	if err := service.resetTokenRepository.Set(context, token, account.ID, ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	// Dispatch exactly one email, addressed to the account on record.
	link := fmt.Sprintf("%s/reset-password?token=%s", service.options.PublicBaseURL, token)

	if err := service.mailSender.Send(context, mail.Message{
		To:      account.Email,
		Subject: service.options.MailSubjectTag + " Password reset requested",
		Body: fmt.Sprintf(
			"Hi %s,\n\nA password reset was requested for your account. "+
				"Open the link below to choose a new password:\n\n%s\n\n"+
				"The link expires in %d hour(s). If you did not request this, ignore this email.\n",
			account.Username, link, int(ResetTokenTTL.Hours())),
	}); err != nil {
		return fmt.Errorf("auth_service_reset_email_failed: %w", err)
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Applies the same mismatch/strength checks as Registration, then
verifies the token, commits the new password, revokes every active session,
and consumes the token (single use).

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string
  - newPasswordConfirm: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword, newPasswordConfirm string) error {

	// New password pair checks run before any store access.
	if err := service.validateNewPassword(newPassword, newPasswordConfirm); err != nil {
		return err
	}

	// Retrieve the userID associated with the reset token
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return validate.FieldViolation(FieldToken, validate.CodeInvalid, "Reset token is invalid or expired")
	}

	// Hash the new password securely
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	// Update the account's password in persistent storage
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Security Cleanup: Revoke EVERY active session for this account
	_ = service.sessionRepository.RevokeAll(context, userID)

	// Consume the token — a second redemption attempt must fail.
	_ = service.resetTokenRepository.Delete(context, token)

	return nil
}

/*
ChangePassword allows an authenticated account to update their credentials.

Description: Verifies the current password first, then applies the standard
new-password pair checks, and finally rotates all OTHER refresh sessions so
that stolen sessions on other devices are cut off.

The caller must already be authenticated — this method never authenticates.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - newPasswordConfirm: string
  - currentRefreshToken: string

Returns:
  - err: password_incorrect, validation, or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword, newPasswordConfirm, currentRefreshToken string) error {

	// Fetch account by ID
	account, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	// Verify the current password before allowing change
	if !sec.CheckPasswordHash(currentPassword, account.PasswordHash) {
		return validate.FieldViolation(FieldCurrentPassword, CodePasswordIncorrect,
			"Your old password was entered incorrectly. Please enter it again.")
	}

	// New password pair checks (mismatch + strength policy)
	if err := service.validateNewPassword(newPassword, newPasswordConfirm); err != nil {
		return err
	}

	// Hash the brand new password
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	// Update the database with the new hash
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	// Security Side Effect: Revoke all other sessions to force re-login on other devices
	tokenHash := sec.HashToken(currentRefreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err == nil {
		_ = service.sessionRepository.RevokeOthers(context, userID, session.ID)
	}

	return nil
}

// validateNewPassword applies the shared mismatch and strength checks used by
// Registration, ResetPassword, and ChangePassword.
func (service *Service) validateNewPassword(newPassword, newPasswordConfirm string) error {
	validator := &validate.Validator{}
	validator.Required(FieldNewPassword, newPassword).
		Custom(FieldNewPassword, newPassword != newPasswordConfirm,
			CodePasswordMismatch, "2 passwords should be equal")

	for _, violation := range service.passwordPolicy.Validate(newPassword) {
		validator.Violation(FieldNewPassword, violation.Code, violation.Message)
	}

	return validator.Err()
}

// # Email Confirmation

/*
VerifyEmail confirms ownership of an account's email address and activates
the account.

Description: The uid identifies the account; the token proves ownership. All
failure modes (unknown uid, unknown token, token bound to a different
account) collapse into one generic error so the endpoint cannot be used to
probe for accounts. On success the active flag flips false→true and the
token is consumed — replaying it fails.

Parameters:
  - context: context.Context
  - uid: string
  - token: string

Returns:
  - err: Generic invalid-link failure or storage errors
*/
func (service *Service) VerifyEmail(context context.Context, uid, token string) error {

	// Resolve the uid to an existing account. Unknown uid → generic failure,
	// no state change.
	account, err := service.userRepository.FindByID(context, uid)
	if err != nil {
		return invalidVerificationLink()
	}

	// The token must exist, be unexpired, and be bound to this account.
	storedUserID, err := service.confirmationTokenRepository.Get(context, token)
	if err != nil || storedUserID != account.ID {
		return invalidVerificationLink()
	}

	// Activate the account in persistent storage
	if err := service.userRepository.SetActive(context, account.ID, true); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	// Consume the token — activation happens exactly once per token.
	_ = service.confirmationTokenRepository.Delete(context, token)

	return nil
}

// invalidVerificationLink is the single error returned for every
// email-confirmation failure mode.
func invalidVerificationLink() error {
	return validate.FieldViolation(FieldToken, validate.CodeInvalid,
		"Verification link is invalid or expired")
}
