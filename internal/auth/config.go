package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ParseAPITokens parses "token=owner" pairs separated by commas.
func ParseAPITokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)

	for _, pair := range splitList(raw) {
		token, owner, ok := strings.Cut(pair, "=")
		if !ok || token == "" || owner == "" {
			return nil, fmt.Errorf("invalid api token entry %q: want token=owner", pair)
		}

		tokens[token] = owner
	}

	return tokens, nil
}

// ParseUsers parses "email:bcrypt-hash" pairs separated by commas.
func ParseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)

	for _, pair := range splitList(raw) {
		email, hash, ok := strings.Cut(pair, ":")
		if !ok || email == "" || !strings.HasPrefix(hash, "$2") {
			return nil, fmt.Errorf("invalid user entry for %q: want email:bcrypt-hash", MaskEmail(email))
		}

		users[NormalizeEmail(email)] = hash
	}

	return users, nil
}

// UserEntry hashes password and formats an entry accepted by ParseUsers.
func UserEntry(email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return email + ":" + string(hash), nil
}

func splitList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
