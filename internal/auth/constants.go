// Copyright (c) 2026 Keysmith. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a session/refresh token remains valid.
	// Long-lived (30 days) to provide a good user experience.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// ConfirmationTokenTTL is the duration an email confirmation token remains
	// valid. Long-lived (24 hours) as users might not check email immediately.
	ConfirmationTokenTTL = 24 * time.Hour

	// ConfirmationTokenLength is the byte length of the random confirmation token.
	ConfirmationTokenLength = 32
)

// # Workflow Error Codes

// Machine-readable codes surfaced by the credential workflows. These are part
// of the API contract and must never be renamed.
const (
	// CodeInvalidLogin covers both "no such user" and "wrong password".
	// A single code prevents username enumeration through login probing.
	CodeInvalidLogin = "invalid_login"

	// CodeInactive is returned when credentials match but the account has not
	// been activated. More specific than CodeInvalidLogin: it leaks that the
	// account exists, but only to a caller who already holds valid credentials.
	CodeInactive = "inactive"

	// CodePasswordMismatch is returned when the two copies of a new password
	// do not match.
	CodePasswordMismatch = "password_mismatch"

	// CodePasswordIncorrect is returned when the current password supplied to
	// the change-password workflow does not verify.
	CodePasswordIncorrect = "password_incorrect"
)
