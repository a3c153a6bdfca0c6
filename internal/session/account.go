package session

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amishk599/cvvin/internal/model"
)

const minPasswordLen = 6

// account is the single local user, stored under KeyAccount.
type account struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func validateCredential(c model.Credential) (model.Credential, error) {
	email := strings.TrimSpace(c.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return c, &model.ValidationError{Kind: model.ErrInvalidCredentials, Field: "email address"}
	}
	if len(c.Password) < minPasswordLen {
		return c, &model.ValidationError{Kind: model.ErrInvalidCredentials, Field: fmt.Sprintf("password (at least %d characters)", minPasswordLen)}
	}
	return model.Credential{Email: email, Password: c.Password}, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// check compares c against the account. Any mismatch is ErrInvalidCredentials.
func (a account) check(c model.Credential) error {
	if !strings.EqualFold(a.Email, strings.TrimSpace(c.Email)) {
		return model.ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(c.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return model.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("checking password: %w", err)
	}
	return nil
}

// displayName is the part of the email before '@'.
func displayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
