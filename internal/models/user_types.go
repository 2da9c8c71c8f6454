package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is the model for the 'users' table.
// Optional profile fields are pointers so they serialize as absent, not empty.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	IsAdmin      bool   `json:"isAdmin" db:"is_admin"`

	// --- Profile Fields ---
	Phone        *string `json:"phone,omitempty" db:"phone"`
	AddressLine1 *string `json:"addressLine1,omitempty" db:"address_line1"`
	City         *string `json:"city,omitempty" db:"city"`
	PostalCode   *string `json:"postalCode,omitempty" db:"postal_code"`
	Country      *string `json:"country,omitempty" db:"country"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ProfileUpdate carries the fields a user may change on their own record.
// A nil field is left untouched.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	AddressLine1 *string
	City         *string
	PostalCode   *string
	Country      *string
	PasswordHash *string
}

// Password wraps bcrypt hashing for user credentials.
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
