package service

import (
	"context"
	"sync"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"go.uber.org/zap"
)

// queueKey (학년, 과목) 단위 매칭 큐 식별자
type queueKey struct {
	GradeID   string
	SubjectID string
}

// matchQueue 하나의 (학년, 과목) 키에 대한 FIFO 대기열
// 키 단위 mu로 check-pop-create가 직렬화된다 (서로 다른 키는 병렬)
type matchQueue struct {
	mu      sync.Mutex
	waiting []string
}

// MatchmakingService (학년, 과목)별 대기열에서 두 명씩 짝지어 배틀 생성
type MatchmakingService struct {
	battleService *BattleService
	logger        *zap.Logger

	mu     sync.RWMutex
	queues map[queueKey]*matchQueue

	// 플레이어가 현재 대기 중인 키 (중복 등록 방지)
	waitingMu sync.Mutex
	waitingBy map[string]queueKey
}

func NewMatchmakingService(battleService *BattleService) *MatchmakingService {
	logger, _ := zap.NewProduction()

	return &MatchmakingService{
		battleService: battleService,
		logger:        logger,
		queues:        make(map[queueKey]*matchQueue),
		waitingBy:     make(map[string]queueKey),
	}
}

// Enqueue 플레이어를 매칭 큐에 등록
// 상대가 기다리고 있으면 (배틀, nil), 아니면 (nil, nil) = 대기
// 이미 대기 중인 플레이어의 재등록은 no-op으로 대기 응답
func (s *MatchmakingService) Enqueue(ctx context.Context, playerID, gradeID, subjectID string) (*models.Battle, error) {
	key := queueKey{GradeID: gradeID, SubjectID: subjectID}

	// 어느 큐든 이미 대기 중이면 중복 등록하지 않는다
	// (동시 중복 등록 방지를 위해 큐 접근 전에 예약)
	s.waitingMu.Lock()
	if _, waiting := s.waitingBy[playerID]; waiting {
		s.waitingMu.Unlock()
		s.logger.Debug("Player already waiting in a queue", zap.String("playerId", playerID))
		return nil, nil
	}
	s.waitingBy[playerID] = key
	s.waitingMu.Unlock()

	q := s.queue(key)

	q.mu.Lock()
	if len(q.waiting) == 0 {
		q.waiting = append(q.waiting, playerID)
		q.mu.Unlock()

		s.logger.Info("Player queued for matchmaking",
			zap.String("playerId", playerID),
			zap.String("gradeId", gradeID),
			zap.String("subjectId", subjectID))
		return nil, nil
	}

	// 선두 대기자를 상대로 꺼낸다 (선두가 첫 번째 참가자)
	opponent := q.waiting[0]
	q.waiting = q.waiting[1:]
	q.mu.Unlock()

	s.waitingMu.Lock()
	delete(s.waitingBy, opponent)
	delete(s.waitingBy, playerID)
	s.waitingMu.Unlock()

	battle, err := s.battleService.Create(ctx, []string{opponent, playerID}, "", gradeID, subjectID)
	if err != nil {
		// 생성 실패 시 상대를 큐 선두로 복귀
		q.mu.Lock()
		q.waiting = append([]string{opponent}, q.waiting...)
		q.mu.Unlock()

		s.waitingMu.Lock()
		s.waitingBy[opponent] = key
		s.waitingMu.Unlock()

		return nil, err
	}

	s.logger.Info("Players matched",
		zap.String("battleId", battle.ID),
		zap.String("player1", opponent),
		zap.String("player2", playerID))

	return battle, nil
}

// Withdraw 플레이어를 모든 대기열에서 제거 (연결 종료 시)
func (s *MatchmakingService) Withdraw(playerID string) {
	s.waitingMu.Lock()
	key, waiting := s.waitingBy[playerID]
	if waiting {
		delete(s.waitingBy, playerID)
	}
	s.waitingMu.Unlock()

	if !waiting {
		return
	}

	q := s.queue(key)
	q.mu.Lock()
	for i, id := range q.waiting {
		if id == playerID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			break
		}
	}
	q.mu.Unlock()

	s.logger.Info("Player withdrawn from matchmaking", zap.String("playerId", playerID))
}

// WaitingCount 해당 키의 대기 인원 수
func (s *MatchmakingService) WaitingCount(gradeID, subjectID string) int {
	q := s.queue(queueKey{GradeID: gradeID, SubjectID: subjectID})
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// queue 키에 해당하는 큐 조회 (없으면 생성)
func (s *MatchmakingService) queue(key queueKey) *matchQueue {
	s.mu.RLock()
	q, exists := s.queues[key]
	s.mu.RUnlock()

	if exists {
		return q
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if q, exists = s.queues[key]; exists {
		return q
	}

	q = &matchQueue{}
	s.queues[key] = q
	return q
}
