// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ConfirmationKeyLength is the length of registration confirmation keys.
const ConfirmationKeyLength = 20

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// GenerateConfirmationKey creates a random key for a group registration.
// Slashes are removed so the key can be used as a URL path segment.
func GenerateConfirmationKey() (string, error) {
	b := make([]byte, 50)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation key: %w", err)
	}
	key := strings.ReplaceAll(base64.StdEncoding.EncodeToString(b), "/", "")
	return key[:ConfirmationKeyLength], nil
}

// HashPassword returns a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// CheckDeviceCredentials validates the shared station-app login.
// Empty expected credentials never match.
func CheckDeviceCredentials(login, password, wantLogin, wantPassword string) error {
	if wantLogin == "" || wantPassword == "" {
		return ErrInvalidCredentials
	}
	loginOK := subtle.ConstantTimeCompare([]byte(login), []byte(wantLogin)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(wantPassword)) == 1
	if !loginOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}
