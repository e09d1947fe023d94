package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// RoleUser is granted to every account allowed to write posts.
const RoleUser = "ROLE_USER"

// User is an account that can log in through the form firewall
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"not null"` // bcrypt hash
	Roles       string    `json:"roles" gorm:"not null"`
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HashPassword replaces the plain text password with its bcrypt hash.
func (u *User) HashPassword() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// RoleList splits the stored comma separated roles.
func (u *User) RoleList() []string {
	var roles []string
	for _, role := range strings.Split(u.Roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func (u *User) HasRole(role string) bool {
	return hasRole(u.RoleList(), role)
}

// LoginRequest is the body posted to the login check path
type LoginRequest struct {
	Username string `form:"_username" validate:"required"`
	Password string `form:"_password" validate:"required"`
}

// FirebaseLoginRequest carries a Firebase ID token obtained by the browser
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" form:"idToken" validate:"required"`
}

// SessionClaims are the JWT claims stored in the session cookie
type SessionClaims struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) HasRole(role string) bool {
	return hasRole(c.Roles, role)
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
