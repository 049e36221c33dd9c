package model

import (
	"time"

	"github.com/google/uuid"

	"gym-membership-billing/internal/domain"
)

// User is the club member as seen by the settlement core.
type User struct {
	ID        string
	FullName  string
	Phone     string
	CreatedAt time.Time
}

func NewUser(id, fullName, phone string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if fullName == "" || phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{ID: id, FullName: fullName, Phone: phone, CreatedAt: time.Now()}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
