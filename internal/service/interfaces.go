package service

import (
	"context"
	"time"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
)

// QuestionBank 문제 은행 어댑터
// NextQuestion은 남은 문제가 없으면 ErrQuestionsExhausted 반환
type QuestionBank interface {
	NextQuestion(ctx context.Context, gradeID, subjectID string, exclude []string) (*models.Question, error)
	CheckAnswer(ctx context.Context, questionID string, answer []string) (bool, error)
}

// Notifier 실시간 연결을 가진 사용자에게 이벤트 전달 (best-effort)
// 연결이 없거나 전송 버퍼가 가득 차면 메시지는 버려진다
type Notifier interface {
	SendToUser(userID, msgType string, payload interface{})
	BroadcastToBattle(battleID, msgType string, payload interface{})
}

// ConnectionRegistry 배틀 룸 멤버십 관리
type ConnectionRegistry interface {
	JoinBattle(userID, battleID string)
	RemoveBattle(battleID string)
}

// BattleStore 배틀 이력 영속화
type BattleStore interface {
	Create(battle *models.Battle) error
	Update(battle *models.Battle) error
	FindByID(id string) (*models.Battle, error)
	FindByPlayerID(playerID string, limit, offset int) ([]*models.Battle, error)
}

// InvitationStore 초대 영속화
// UpdateStatusIfPending은 Pending일 때만 전이하고 성공 여부를 반환 (동시 수행 방지)
type InvitationStore interface {
	Create(inv *models.BattleInvitation) error
	FindByID(id string) (*models.BattleInvitation, error)
	HasPendingBetween(inviterID, inviteeID string, now time.Time) (bool, error)
	UpdateStatusIfPending(id string, status models.InvitationStatus, battleID *string) (bool, error)
	FindPendingByInvitee(inviteeID string, now time.Time) ([]*models.BattleInvitation, error)
	FindByInviter(inviterID string, limit int) ([]*models.BattleInvitation, error)
	FindExpiredPending(now time.Time) ([]*models.BattleInvitation, error)
}

// UserDirectory 사용자 조회 (표시 이름, 초대 대상 확인)
type UserDirectory interface {
	FindByID(id string) (*models.User, error)
}
