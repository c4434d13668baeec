package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/ratelimit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvitationServiceConfig 초대 프로토콜 설정
type InvitationServiceConfig struct {
	TTL           time.Duration // 초대 유효 시간
	SweepInterval time.Duration // 만료 스윕 주기
	SendLimit     int           // 윈도우당 최대 발신 횟수
	SendWindow    time.Duration // 발신 한도 윈도우
}

// SendInvitationRequest 초대 발신 요청
type SendInvitationRequest struct {
	InviteeID string `json:"inviteeId" binding:"required"`
	GradeID   string `json:"gradeId" binding:"required"`
	SubjectID string `json:"subjectId" binding:"required"`
	Topic     string `json:"topic"`
}

// InvitationService 직접 도전 프로토콜 (Pending → Accepted/Declined/Cancelled/Expired)
type InvitationService struct {
	store         InvitationStore
	users         UserDirectory
	battleService *BattleService
	notifier      Notifier
	sendLimiter   *ratelimit.SlidingWindow
	logger        *zap.Logger
	cfg           InvitationServiceConfig

	// (발신자, 수신자) 쌍 단위 잠금
	// 중복 Pending 검사와 생성 사이를 직렬화한다
	pairMu    sync.Mutex
	pairLocks map[string]*sync.Mutex

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	running   bool
	runMu     sync.Mutex
}

func NewInvitationService(
	store InvitationStore,
	users UserDirectory,
	battleService *BattleService,
	notifier Notifier,
	cfg InvitationServiceConfig,
) *InvitationService {
	logger, _ := zap.NewProduction()

	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SendLimit <= 0 {
		cfg.SendLimit = 3
	}
	if cfg.SendWindow <= 0 {
		cfg.SendWindow = time.Minute
	}

	return &InvitationService{
		store:         store,
		users:         users,
		battleService: battleService,
		notifier:      notifier,
		sendLimiter:   ratelimit.NewSlidingWindow(cfg.SendLimit, cfg.SendWindow),
		logger:        logger,
		cfg:           cfg,
		pairLocks:     make(map[string]*sync.Mutex),
		sweepStop:     make(chan struct{}),
	}
}

// Send 초대 발신
func (s *InvitationService) Send(ctx context.Context, inviterID string, req SendInvitationRequest) (*models.BattleInvitation, error) {
	if inviterID == req.InviteeID {
		return nil, ErrSelfInvitation
	}

	invitee, err := s.users.FindByID(req.InviteeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}
	if invitee == nil {
		return nil, ErrUserNotFound
	}

	// 같은 쌍의 동시 발신이 둘 다 중복 검사를 통과하지 못하도록 직렬화
	lock := s.pairLock(inviterID, req.InviteeID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()

	exists, err := s.store.HasPendingBetween(inviterID, req.InviteeID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}
	if exists {
		return nil, ErrDuplicatePending
	}

	if !s.sendLimiter.Allow(inviterID) {
		return nil, ErrRateLimited
	}

	inv := &models.BattleInvitation{
		ID:        uuid.NewString(),
		InviterID: inviterID,
		InviteeID: req.InviteeID,
		GradeID:   req.GradeID,
		SubjectID: req.SubjectID,
		Topic:     req.Topic,
		Status:    models.InvitationStatusPending,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(inv); err != nil {
		// 다른 인스턴스가 같은 쌍의 초대를 먼저 삽입한 경우
		if errors.Is(err, ErrDuplicatePending) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("failed to persist invitation: %w", err)
	}

	// 수신자에게 best-effort 알림 (연결이 없으면 버려짐)
	s.notifier.SendToUser(req.InviteeID, "invitation_received", inv)

	s.logger.Info("Invitation sent",
		zap.String("invitationId", inv.ID),
		zap.String("inviterId", inviterID),
		zap.String("inviteeId", req.InviteeID))

	return inv, nil
}

// Accept 초대 수락 — 배틀을 생성하고 초대에 배틀 ID를 기록
// 만료된 초대는 Expired로 전이시키고 거부
func (s *InvitationService) Accept(ctx context.Context, inviteeID, invitationID string) (*models.BattleInvitation, error) {
	inv, err := s.authorize(invitationID, inviteeID, false)
	if err != nil {
		return nil, err
	}

	if inv.IsExpired(time.Now()) {
		// 스윕 전이라도 만료 처리 후 거부
		if _, err := s.store.UpdateStatusIfPending(inv.ID, models.InvitationStatusExpired, nil); err != nil {
			s.logger.Error("Failed to expire invitation", zap.String("invitationId", inv.ID), zap.Error(err))
		}
		return nil, ErrInvitationExpired
	}

	battle, err := s.battleService.Create(ctx, []string{inv.InviterID, inv.InviteeID}, inv.Topic, inv.GradeID, inv.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create battle from invitation: %w", err)
	}

	updated, err := s.store.UpdateStatusIfPending(inv.ID, models.InvitationStatusAccepted, &battle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if !updated {
		// 동시에 다른 전이가 먼저 처리됨 — 방금 만든 배틀 정리
		if _, endErr := s.battleService.End(ctx, battle.ID); endErr != nil {
			s.logger.Error("Failed to end orphaned battle",
				zap.String("battleId", battle.ID),
				zap.Error(endErr))
		}
		return nil, ErrInvalidState
	}

	inv.Status = models.InvitationStatusAccepted
	inv.BattleID = &battle.ID

	// 발신자가 바로 배틀로 진입할 수 있도록 먼저 배틀 ID를 알림
	s.notifier.SendToUser(inv.InviterID, "invitation_accepted", inv)

	s.logger.Info("Invitation accepted",
		zap.String("invitationId", inv.ID),
		zap.String("battleId", battle.ID))

	return inv, nil
}

// Decline 초대 거절 (수신자만 가능)
func (s *InvitationService) Decline(ctx context.Context, inviteeID, invitationID string) (*models.BattleInvitation, error) {
	inv, err := s.authorize(invitationID, inviteeID, false)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatusIfPending(inv.ID, models.InvitationStatusDeclined, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decline invitation: %w", err)
	}
	if !updated {
		return nil, ErrInvalidState
	}

	inv.Status = models.InvitationStatusDeclined

	s.notifier.SendToUser(inv.InviterID, "invitation_declined", inv)

	s.logger.Info("Invitation declined", zap.String("invitationId", inv.ID))

	return inv, nil
}

// Cancel 초대 취소 (발신자만 가능)
func (s *InvitationService) Cancel(ctx context.Context, inviterID, invitationID string) (*models.BattleInvitation, error) {
	inv, err := s.authorize(invitationID, inviterID, true)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatusIfPending(inv.ID, models.InvitationStatusCancelled, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel invitation: %w", err)
	}
	if !updated {
		return nil, ErrInvalidState
	}

	inv.Status = models.InvitationStatusCancelled

	s.logger.Info("Invitation cancelled", zap.String("invitationId", inv.ID))

	return inv, nil
}

// ListPending 수신자의 유효한 Pending 초대 목록
// 만료 시각이 지난 초대는 스윕 전이라도 제외된다
func (s *InvitationService) ListPending(ctx context.Context, userID string) ([]*models.BattleInvitation, error) {
	invitations, err := s.store.FindPendingByInvitee(userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	return invitations, nil
}

// ListSent 발신자의 초대 목록
func (s *InvitationService) ListSent(ctx context.Context, userID string) ([]*models.BattleInvitation, error) {
	invitations, err := s.store.FindByInviter(userID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent invitations: %w", err)
	}
	return invitations, nil
}

// ExpirySweep 만료 시각이 지난 Pending 초대를 Expired로 전이
// 개별 초대 처리 실패는 로그만 남기고 계속한다
func (s *InvitationService) ExpirySweep() {
	now := time.Now()

	expired, err := s.store.FindExpiredPending(now)
	if err != nil {
		s.logger.Error("Failed to list expired invitations", zap.Error(err))
		return
	}

	count := 0
	for _, inv := range expired {
		updated, err := s.store.UpdateStatusIfPending(inv.ID, models.InvitationStatusExpired, nil)
		if err != nil {
			s.logger.Error("Failed to expire invitation",
				zap.String("invitationId", inv.ID),
				zap.Error(err))
			continue
		}
		if updated {
			count++
		}
	}

	if count > 0 {
		s.logger.Info("Invitation expiry sweep completed", zap.Int("expired", count))
	}
}

// Start 만료 스윕 루프 시작
func (s *InvitationService) Start() {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.runMu.Unlock()

	s.logger.Info("Starting invitation expiry sweeper",
		zap.Duration("interval", s.cfg.SweepInterval),
		zap.Duration("ttl", s.cfg.TTL))

	s.sweepWG.Add(1)
	go s.sweepLoop()
}

// Stop 만료 스윕 루프 중지
func (s *InvitationService) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	close(s.sweepStop)
	s.sweepWG.Wait()
	s.logger.Info("Invitation expiry sweeper stopped")
}

func (s *InvitationService) sweepLoop() {
	defer s.sweepWG.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ExpirySweep()
		case <-s.sweepStop:
			return
		}
	}
}

// pairLock (발신자, 수신자) 쌍에 해당하는 잠금 조회 (없으면 생성)
func (s *InvitationService) pairLock(inviterID, inviteeID string) *sync.Mutex {
	s.pairMu.Lock()
	defer s.pairMu.Unlock()

	key := inviterID + "|" + inviteeID
	lock, exists := s.pairLocks[key]
	if !exists {
		lock = &sync.Mutex{}
		s.pairLocks[key] = lock
	}
	return lock
}

// authorize 초대 조회 및 행위자 확인
// asInviter가 true면 발신자, false면 수신자만 허용
func (s *InvitationService) authorize(invitationID, userID string, asInviter bool) (*models.BattleInvitation, error) {
	inv, err := s.store.FindByID(invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}

	actor := inv.InviteeID
	if asInviter {
		actor = inv.InviterID
	}
	if actor != userID {
		return nil, ErrForbidden
	}

	if inv.Status != models.InvitationStatusPending {
		return nil, ErrInvalidState
	}

	return inv, nil
}
