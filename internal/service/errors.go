package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
)

// User service specific errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
)

// Battle engine specific errors
var (
	ErrBattleNotFound     = errors.New("battle not found")
	ErrInvalidPlayers     = errors.New("battle requires exactly two distinct players")
	ErrBattleEnded        = errors.New("battle already ended")
	ErrDuplicateAnswer    = errors.New("question already answered")
	ErrQuestionsExhausted = errors.New("question bank exhausted")
)

// Invitation specific errors
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrSelfInvitation     = errors.New("cannot invite yourself")
	ErrDuplicatePending   = errors.New("pending invitation already exists")
	ErrRateLimited        = errors.New("too many invitations sent")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrInvalidState       = errors.New("invitation is not pending")
)
