package model

import (
	"fmt"
	"strings"
	"time"

	"telegram-club-bot/internal/domain"

	"github.com/google/uuid"
)

// User is a domain entity representing a Telegram user in our system.
type User struct {
	ID           string
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	RegisteredAt time.Time
	LastActiveAt time.Time
	ReferrerID   *string // domain ID of the user who invited them, if any
}

func NewUser(id string, tgID int64, username, firstName, lastName string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           id,
		TelegramID:   tgID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }

// DisplayName is how the user is addressed in messages and operator reports.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.TelegramID)
}

// Link renders a mention the operator can click, preferring the username.
func (u *User) Link() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("tg://user?id=%d", u.TelegramID)
}
