package models

import "time"

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusDeclined  InvitationStatus = "declined"
	InvitationStatusCancelled InvitationStatus = "cancelled"
	InvitationStatusExpired   InvitationStatus = "expired"
)

// BattleInvitation 특정 상대를 지정한 대결 초대
type BattleInvitation struct {
	ID        string           `json:"id" db:"id"`
	InviterID string           `json:"inviterId" db:"inviter_id"`
	InviteeID string           `json:"inviteeId" db:"invitee_id"`
	GradeID   string           `json:"gradeId" db:"grade_id"`
	SubjectID string           `json:"subjectId" db:"subject_id"`
	Topic     string           `json:"topic,omitempty" db:"topic"`
	Status    InvitationStatus `json:"status" db:"status"`
	BattleID  *string          `json:"battleId,omitempty" db:"battle_id"`
	ExpiresAt time.Time        `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" db:"updated_at"`
}

// IsExpired 만료 시각 경과 여부 (스윕 전이라도 만료로 취급)
func (i *BattleInvitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
