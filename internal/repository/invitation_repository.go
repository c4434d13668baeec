package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/TKim713/bee-smart-backend-sub000/internal/service"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/database"
	"github.com/lib/pq"
)

type InvitationRepository struct {
	db *database.DB
}

func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create 새 초대 저장
// battle_invitations는 (inviter_id, invitee_id) WHERE status='pending'
// 부분 유니크 인덱스를 가진다 — 동시 삽입은 한 건만 성공
func (r *InvitationRepository) Create(inv *models.BattleInvitation) error {
	query := `
		INSERT INTO battle_invitations (
			id, inviter_id, invitee_id, grade_id, subject_id, topic, status, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(query,
		inv.ID,
		inv.InviterID,
		inv.InviteeID,
		inv.GradeID,
		inv.SubjectID,
		inv.Topic,
		inv.Status,
		inv.ExpiresAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return service.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// FindByID ID로 초대 찾기 (없으면 nil)
func (r *InvitationRepository) FindByID(id string) (*models.BattleInvitation, error) {
	query := selectInvitation + ` WHERE id = $1`

	inv, err := r.scanInvitation(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	return inv, nil
}

// HasPendingBetween (inviter, invitee) 쌍의 Pending 초대 존재 여부
// 만료 시각이 지난 초대는 스윕 전이라도 제외
func (r *InvitationRepository) HasPendingBetween(inviterID, inviteeID string, now time.Time) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM battle_invitations
		WHERE inviter_id = $1 AND invitee_id = $2
		  AND status = 'pending'
		  AND expires_at > $3
	`

	var count int
	if err := r.db.QueryRow(query, inviterID, inviteeID, now).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count pending invitations: %w", err)
	}

	return count > 0, nil
}

// UpdateStatusIfPending Pending 상태일 때만 상태 전이 (원자적)
// 반환값: 전이 성공 여부
func (r *InvitationRepository) UpdateStatusIfPending(id string, status models.InvitationStatus, battleID *string) (bool, error) {
	query := `
		UPDATE battle_invitations
		SET status = $1, battle_id = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.db.Exec(query, status, battleID, id)
	if err != nil {
		return false, fmt.Errorf("failed to update invitation status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// FindPendingByInvitee 수신자의 유효한 Pending 초대 목록
func (r *InvitationRepository) FindPendingByInvitee(inviteeID string, now time.Time) ([]*models.BattleInvitation, error) {
	query := selectInvitation + `
		WHERE invitee_id = $1
		  AND status = 'pending'
		  AND expires_at > $2
		ORDER BY created_at DESC
	`

	return r.queryInvitations(query, inviteeID, now)
}

// FindByInviter 발신자의 초대 목록 (최신순)
func (r *InvitationRepository) FindByInviter(inviterID string, limit int) ([]*models.BattleInvitation, error) {
	query := selectInvitation + `
		WHERE inviter_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryInvitations(query, inviterID, limit)
}

// FindExpiredPending 만료 시각이 지난 Pending 초대 목록 (스윕 대상)
func (r *InvitationRepository) FindExpiredPending(now time.Time) ([]*models.BattleInvitation, error) {
	query := selectInvitation + `
		WHERE status = 'pending' AND expires_at <= $1
	`

	return r.queryInvitations(query, now)
}

const selectInvitation = `
	SELECT id, inviter_id, invitee_id, grade_id, subject_id, topic,
	       status, battle_id, expires_at, created_at, updated_at
	FROM battle_invitations
`

func (r *InvitationRepository) queryInvitations(query string, args ...interface{}) ([]*models.BattleInvitation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.BattleInvitation
	for rows.Next() {
		inv, err := r.scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	return invitations, nil
}

func (r *InvitationRepository) scanInvitation(row rowScanner) (*models.BattleInvitation, error) {
	inv := &models.BattleInvitation{}

	err := row.Scan(
		&inv.ID,
		&inv.InviterID,
		&inv.InviteeID,
		&inv.GradeID,
		&inv.SubjectID,
		&inv.Topic,
		&inv.Status,
		&inv.BattleID,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return inv, nil
}
