package repository

import (
	"database/sql"
	"fmt"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/database"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 새 사용자 생성
func (r *UserRepository) Create(username, email, passwordHash, fullName string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, password_hash, full_name, grade_id, created_at, updated_at
	`

	user := &models.User{}
	err := r.db.QueryRow(query, username, email, passwordHash, fullName).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.GradeID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindByID ID로 사용자 찾기 (없으면 nil)
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	return r.findOne(`WHERE id = $1`, id)
}

// FindByEmail 이메일로 사용자 찾기 (없으면 nil)
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	return r.findOne(`WHERE email = $1`, email)
}

// FindByUsername 사용자명으로 사용자 찾기 (없으면 nil)
func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	return r.findOne(`WHERE username = $1`, username)
}

func (r *UserRepository) findOne(where string, arg interface{}) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, full_name, grade_id, created_at, updated_at
		FROM users
	` + where

	user := &models.User{}
	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.GradeID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
