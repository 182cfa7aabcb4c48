// Copyright (c) 2026 Keysmith. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// # Password Strength Policy

// Violation codes emitted by [PasswordPolicy.Validate]. These are part of the
// API contract and must never be renamed.
const (
	CodePasswordTooShort        = "password_too_short"
	CodePasswordEntirelyNumeric = "password_entirely_numeric"
	CodePasswordTooCommon       = "password_too_common"
)

// DefaultPasswordMinLength is the minimum accepted password length when no
// explicit configuration is provided.
const DefaultPasswordMinLength = 8

// commonPasswords is a small deny-list of the most frequently leaked
// passwords. Checked case-insensitively.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwerty123":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"princess":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
	"admin123":   {},
	"letmein1":   {},
	"trustno1":   {},
	"dragon123":  {},
	"monkey123":  {},
	"shadow123":  {},
	"master123":  {},
	"superman1":  {},
	"michael1":   {},
	"jennifer":   {},
	"11111111":   {},
	"00000000":   {},
	"abcd1234":   {},
	"1q2w3e4r":   {},
	"zaq12wsx":   {},
	"asdfghjkl":  {},
}

// PasswordViolation represents one failed strength rule.
type PasswordViolation struct {
	// Code is the machine-readable rule identifier.
	Code string
	// Message is the human-readable description of the failure.
	Message string
}

// PasswordPolicy evaluates candidate passwords against an ordered set of
// strength rules.
//
// # Contract
//
// Validate returns ALL violated rules, not just the first, so that clients
// can present the complete set of problems in a single round trip. An empty
// slice means the password is acceptable.
type PasswordPolicy struct {
	// MinLength is the minimum number of Unicode characters required.
	MinLength int
}

// NewPasswordPolicy constructs a policy. A non-positive minLength falls back
// to [DefaultPasswordMinLength].
func NewPasswordPolicy(minLength int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	return &PasswordPolicy{MinLength: minLength}
}

// Validate evaluates the plaintext candidate and returns every violated rule.
func (policy *PasswordPolicy) Validate(plaintext string) []PasswordViolation {
	var violations []PasswordViolation

	if utf8.RuneCountInString(plaintext) < policy.MinLength {
		violations = append(violations, PasswordViolation{
			Code:    CodePasswordTooShort,
			Message: fmt.Sprintf("Password must contain at least %d characters", policy.MinLength),
		})
	}

	if plaintext != "" && isEntirelyNumeric(plaintext) {
		violations = append(violations, PasswordViolation{
			Code:    CodePasswordEntirelyNumeric,
			Message: "Password cannot be entirely numeric",
		})
	}

	if _, found := commonPasswords[strings.ToLower(plaintext)]; found {
		violations = append(violations, PasswordViolation{
			Code:    CodePasswordTooCommon,
			Message: "Password is too common",
		})
	}

	return violations
}

// isEntirelyNumeric reports whether every rune in the value is a digit.
func isEntirelyNumeric(value string) bool {
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
