package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crabby-crew/backend/internal/apperr"
)

const (
	DefaultAvatarEmoji = "🦀"

	MinUsernameLength    = 3
	MaxUsernameLength    = 50
	MaxDisplayNameLength = 50
)

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarEmoji string    `json:"avatarEmoji"`
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PublicUser is the subset of a user shown on leaderboards and feeds.
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarEmoji string `json:"avatarEmoji"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarEmoji: u.AvatarEmoji,
	}
}

type LoginRequest struct {
	Username  string `json:"username"`
	CreateNew bool   `json:"createNew"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)

	var v apperr.Validator
	v.Check(utf8.RuneCountInString(r.Username) >= MinUsernameLength, "username", "Username must be at least 3 characters")
	v.Check(utf8.RuneCountInString(r.Username) <= MaxUsernameLength, "username", "Username must be at most 50 characters")
	return v.Err()
}

type LoginResponse struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarEmoji *string `json:"avatarEmoji"`
}

func (r *UpdateProfileRequest) Validate() error {
	var v apperr.Validator
	if r.DisplayName != nil {
		name := strings.TrimSpace(*r.DisplayName)
		r.DisplayName = &name
		v.Check(name != "", "displayName", "displayName must not be empty")
		v.Check(utf8.RuneCountInString(name) <= MaxDisplayNameLength, "displayName", "displayName must be at most 50 characters")
	}
	if r.AvatarEmoji != nil {
		v.Check(*r.AvatarEmoji != "", "avatarEmoji", "avatarEmoji must not be empty")
		v.Check(utf8.RuneCountInString(*r.AvatarEmoji) <= 8, "avatarEmoji", "avatarEmoji must be a single symbol")
	}
	return v.Err()
}

// Apply copies the provided fields onto u.
func (r UpdateProfileRequest) Apply(u *User) {
	if r.DisplayName != nil {
		u.DisplayName = *r.DisplayName
	}
	if r.AvatarEmoji != nil {
		u.AvatarEmoji = *r.AvatarEmoji
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}
