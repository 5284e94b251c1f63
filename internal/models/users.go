package models

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// User is one registered account. Field names follow the deployment's
// original document shape.
type User struct {
	ID           string
	Nom          string
	Prenom       string
	Superficie   string
	Plante       string
	EmailOrPhone string
	Created      time.Time
	Updated      time.Time
}

// Profile carries the user-editable fields plus, on registration, the
// credentials.
type Profile struct {
	Nom          string
	Prenom       string
	Superficie   string
	Plante       string
	EmailOrPhone string
	Password     string
}

type UserModelInterface interface {
	Insert(p Profile) (string, error)
	Authenticate(emailOrPhone, password string) (string, error)
	Get(id string) (User, error)
	UpdateProfile(id string, p Profile) error
	Exists(emailOrPhone string) (bool, error)
}

type UserModel struct {
	DB       *sql.DB
	Verifier CredentialVerifier
}

// Insert creates a new user and returns its generated id.
func (m *UserModel) Insert(p Profile) (string, error) {
	stored, err := m.Verifier.Hash(p.Password)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = m.DB.Exec(`INSERT INTO users (id, nom, prenom, superficie, plante, email_or_phone, password, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Nom, p.Prenom, p.Superficie, p.Plante, p.EmailOrPhone, stored, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", ErrDuplicateUser
		}
		return "", err
	}
	return id, nil
}

// Authenticate returns the user id for a matching identifier/password pair.
func (m *UserModel) Authenticate(emailOrPhone, password string) (string, error) {
	var id, stored string
	err := m.DB.QueryRow(`SELECT id, password FROM users WHERE email_or_phone = ?`, emailOrPhone).Scan(&id, &stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !m.Verifier.Verify(stored, password) {
		return "", ErrInvalidCredentials
	}
	return id, nil
}

func (m *UserModel) Get(id string) (User, error) {
	var u User
	err := m.DB.QueryRow(`SELECT id, nom, prenom, superficie, plante, email_or_phone, created, updated
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Nom, &u.Prenom, &u.Superficie, &u.Plante, &u.EmailOrPhone, &u.Created, &u.Updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNoRecord
		}
		return User{}, err
	}
	return u, nil
}

// UpdateProfile overwrites the editable fields. Credentials and the
// identifier are not touched here.
func (m *UserModel) UpdateProfile(id string, p Profile) error {
	res, err := m.DB.Exec(`UPDATE users SET nom = ?, prenom = ?, superficie = ?, plante = ?, updated = ? WHERE id = ?`,
		p.Nom, p.Prenom, p.Superficie, p.Plante, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (m *UserModel) Exists(emailOrPhone string) (bool, error) {
	var exists bool
	err := m.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email_or_phone = ?)`, emailOrPhone).Scan(&exists)
	return exists, err
}
