package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/beachclub/internal/clock"
)

type staffDoc struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	PasswordHash string `json:"passwordHash"`
}

type staffSession struct {
	StaffID     string
	Username    string
	DisplayName string
}

var errNoStaffSession = errors.New("no valid staff session")

// StaffStore holds staff accounts and their login sessions.
type StaffStore struct {
	db    *sql.DB
	clock clock.Clock
	cost  int
}

func NewStaffStore(db *sql.DB, clk clock.Clock) *StaffStore {
	return &StaffStore{db: db, clock: clk, cost: bcrypt.DefaultCost}
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// CreateStaff adds an account. Usernames are unique, case-insensitively.
func (s *StaffStore) CreateStaff(ctx context.Context, username, displayName, password string) (staffDoc, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return staffDoc{}, errors.New("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return staffDoc{}, fmt.Errorf("hashing password: %w", err)
	}
	doc := staffDoc{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return staffDoc{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO staff (id, username, data) VALUES (?, ?, jsonb(?))`,
		doc.ID, doc.Username, string(data),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return staffDoc{}, ErrConflict
	}
	return doc, err
}

// EnsureStaff creates the given account when no staff exist yet.
func (s *StaffStore) EnsureStaff(ctx context.Context, username, password string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staff`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.CreateStaff(ctx, username, "Floor staff", password); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate returns the account for username when password matches.
func (s *StaffStore) Authenticate(ctx context.Context, username, password string) (staffDoc, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM staff WHERE username = ?`, normalizeUsername(username),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return staffDoc{}, ErrNotFound
	}
	if err != nil {
		return staffDoc{}, err
	}

	var doc staffDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return staffDoc{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(password)); err != nil {
		return staffDoc{}, ErrNotFound
	}
	return doc, nil
}

func (s *StaffStore) CreateSession(ctx context.Context, staffID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO staff_sessions (id, staff_id, created_at) VALUES (?, ?, ?)`,
		id, staffID, formatTime(s.clock.Now()),
	)
	return id, err
}

func (s *StaffStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM staff_sessions WHERE id = ?`, sessionID)
	return err
}

// StaffFromSession resolves a session cookie. Sessions older than
// staffSessionTTL no longer resolve.
func (s *StaffStore) StaffFromSession(ctx context.Context, sessionID string) (staffSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT json(st.data)
		FROM staff_sessions ss
		JOIN staff st ON st.id = ss.staff_id
		WHERE ss.id = ? AND ss.created_at > ?
	`, sessionID, formatTime(s.clock.Now().Add(-staffSessionTTL))).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return staffSession{}, errNoStaffSession
	}
	if err != nil {
		return staffSession{}, err
	}

	var doc staffDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return staffSession{}, err
	}
	return staffSession{StaffID: doc.ID, Username: doc.Username, DisplayName: doc.DisplayName}, nil
}
