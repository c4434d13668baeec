package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BattleServiceConfig 배틀 엔진 설정
type BattleServiceConfig struct {
	QuestionCount int           // 배틀당 문제 수
	ScoreReward   int           // 정답당 점수
	Timeout       time.Duration // 배틀 최대 지속 시간
	SweepInterval time.Duration // 타임아웃 스윕 주기
}

// liveBattle 진행 중인 배틀의 인메모리 상태
// 배틀 하나의 모든 변경은 mu로 직렬화된다
type liveBattle struct {
	mu     sync.Mutex
	battle *models.Battle
}

// BattleService 배틀 상태 머신 소유 (Ongoing → Ended 단방향)
type BattleService struct {
	store        BattleStore
	questionBank QuestionBank
	users        UserDirectory
	notifier     Notifier
	registry     ConnectionRegistry
	logger       *zap.Logger
	cfg          BattleServiceConfig

	mu   sync.RWMutex
	live map[string]*liveBattle

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	running   bool
	runMu     sync.Mutex
}

func NewBattleService(
	store BattleStore,
	questionBank QuestionBank,
	users UserDirectory,
	notifier Notifier,
	registry ConnectionRegistry,
	cfg BattleServiceConfig,
) *BattleService {
	logger, _ := zap.NewProduction()

	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 10
	}
	if cfg.ScoreReward <= 0 {
		cfg.ScoreReward = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	return &BattleService{
		store:        store,
		questionBank: questionBank,
		users:        users,
		notifier:     notifier,
		registry:     registry,
		logger:       logger,
		cfg:          cfg,
		live:         make(map[string]*liveBattle),
		sweepStop:    make(chan struct{}),
	}
}

// Create 새 배틀 생성
// 정확히 두 명의 서로 다른 참가자가 필요하며, 생성 직후 첫 문제를 양쪽에 전송
func (s *BattleService) Create(ctx context.Context, playerIDs []string, topic, gradeID, subjectID string) (*models.Battle, error) {
	if len(playerIDs) != 2 || playerIDs[0] == playerIDs[1] || playerIDs[0] == "" || playerIDs[1] == "" {
		return nil, ErrInvalidPlayers
	}

	players := make([]models.PlayerScore, 2)
	for i, id := range playerIDs {
		players[i] = models.PlayerScore{PlayerID: id, PlayerName: s.displayName(id)}
	}

	battle := &models.Battle{
		ID:                  uuid.NewString(),
		Topic:               topic,
		GradeID:             gradeID,
		SubjectID:           subjectID,
		Status:              models.BattleStatusOngoing,
		Players:             players,
		QuestionCount:       s.cfg.QuestionCount,
		CurrentQuestion:     0,
		AnsweredQuestionIDs: []string{},
		StartedAt:           time.Now(),
		CreatedAt:           time.Now(),
	}

	if err := s.store.Create(battle); err != nil {
		return nil, fmt.Errorf("failed to persist battle: %w", err)
	}

	lb := &liveBattle{battle: battle}
	s.mu.Lock()
	s.live[battle.ID] = lb
	s.mu.Unlock()

	// 참가자를 배틀 룸에 등록
	s.registry.JoinBattle(playerIDs[0], battle.ID)
	s.registry.JoinBattle(playerIDs[1], battle.ID)

	s.logger.Info("Battle created",
		zap.String("battleId", battle.ID),
		zap.String("player1", playerIDs[0]),
		zap.String("player2", playerIDs[1]),
		zap.String("gradeId", gradeID),
		zap.String("subjectId", subjectID))

	// 첫 문제 전송 (문제가 없으면 즉시 종료)
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if err := s.pushNextQuestionLocked(ctx, lb); err != nil {
		if err == ErrQuestionsExhausted {
			s.finishLocked(lb)
			return lb.battle.Clone(), nil
		}
		s.logger.Error("Failed to push opening question",
			zap.String("battleId", battle.ID),
			zap.Error(err))
	}

	return lb.battle.Clone(), nil
}

// SubmitAnswer 답안 제출 처리
// 같은 문제에 대한 두 번째 제출은 ErrDuplicateAnswer (선착순 채점)
func (s *BattleService) SubmitAnswer(ctx context.Context, battleID, playerID, questionID string, answer []string) (*models.Battle, error) {
	lb := s.liveBattle(battleID)
	if lb == nil {
		stored, err := s.store.FindByID(battleID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up battle: %w", err)
		}
		if stored == nil {
			return nil, ErrBattleNotFound
		}
		// 인메모리 상태가 없으면 이미 종료된 배틀
		return nil, ErrBattleEnded
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	battle := lb.battle

	if battle.Status == models.BattleStatusEnded {
		return nil, ErrBattleEnded
	}

	idx := battle.PlayerIndex(playerID)
	if idx < 0 {
		return nil, ErrForbidden
	}

	if battle.HasAnswered(questionID) {
		return nil, ErrDuplicateAnswer
	}

	correct, err := s.questionBank.CheckAnswer(ctx, questionID, answer)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to check answer: %w", err)
	}

	if correct {
		battle.Players[idx].Score += s.cfg.ScoreReward
		battle.Players[idx].CorrectAnswers++
	} else {
		battle.Players[idx].IncorrectAnswers++
	}

	battle.AnsweredQuestionIDs = append(battle.AnsweredQuestionIDs, questionID)
	battle.CurrentQuestion++

	if battle.CurrentQuestion >= battle.QuestionCount {
		s.finishLocked(lb)
		return battle.Clone(), nil
	}

	s.persistLocked(lb)
	s.notifier.BroadcastToBattle(battle.ID, "battle_update", battle.Clone())

	if err := s.pushNextQuestionLocked(ctx, lb); err != nil {
		if err == ErrQuestionsExhausted {
			// 문제가 고갈되면 조기 종료 (일반 종료와 동일 경로)
			s.finishLocked(lb)
			return battle.Clone(), nil
		}
		s.logger.Error("Failed to fetch next question",
			zap.String("battleId", battle.ID),
			zap.Error(err))
	}

	return battle.Clone(), nil
}

// End 배틀 강제 종료 (관리용)
// 이미 종료된 배틀에 대해서는 상태 변경 없이 성공 처리
func (s *BattleService) End(ctx context.Context, battleID string) (*models.Battle, error) {
	lb := s.liveBattle(battleID)
	if lb == nil {
		stored, err := s.store.FindByID(battleID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up battle: %w", err)
		}
		if stored == nil {
			return nil, ErrBattleNotFound
		}
		if stored.Status == models.BattleStatusEnded {
			return stored, nil
		}
		// 프로세스 재시작 등으로 인메모리 상태가 없는 Ongoing 배틀
		lb = &liveBattle{battle: stored}
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.battle.Status == models.BattleStatusEnded {
		return lb.battle.Clone(), nil
	}

	s.finishLocked(lb)
	return lb.battle.Clone(), nil
}

// GetByID 배틀 스냅샷 조회 (진행 중이면 인메모리, 종료 후에는 이력)
func (s *BattleService) GetByID(ctx context.Context, battleID string) (*models.Battle, error) {
	if lb := s.liveBattle(battleID); lb != nil {
		lb.mu.Lock()
		defer lb.mu.Unlock()
		return lb.battle.Clone(), nil
	}

	battle, err := s.store.FindByID(battleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get battle: %w", err)
	}
	if battle == nil {
		return nil, ErrBattleNotFound
	}

	return battle, nil
}

// GetHistory 참가자의 배틀 이력
func (s *BattleService) GetHistory(ctx context.Context, playerID string, page, pageSize int) ([]*models.Battle, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	battles, err := s.store.FindByPlayerID(playerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get battle history: %w", err)
	}

	return battles, nil
}

// TimeoutSweep 제한 시간을 초과한 Ongoing 배틀 일괄 종료
// 개별 배틀 처리 실패는 로그만 남기고 나머지 처리를 계속한다
func (s *BattleService) TimeoutSweep() {
	now := time.Now()

	s.mu.RLock()
	candidates := make([]*liveBattle, 0, len(s.live))
	for _, lb := range s.live {
		candidates = append(candidates, lb)
	}
	s.mu.RUnlock()

	expired := 0
	for _, lb := range candidates {
		lb.mu.Lock()
		if lb.battle.Status == models.BattleStatusOngoing && now.Sub(lb.battle.StartedAt) > s.cfg.Timeout {
			s.finishLocked(lb)
			expired++
		}
		lb.mu.Unlock()
	}

	if expired > 0 {
		s.logger.Info("Battle timeout sweep completed", zap.Int("expired", expired))
	}
}

// Start 타임아웃 스윕 루프 시작
func (s *BattleService) Start() {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.runMu.Unlock()

	s.logger.Info("Starting battle timeout sweeper",
		zap.Duration("interval", s.cfg.SweepInterval),
		zap.Duration("timeout", s.cfg.Timeout))

	s.sweepWG.Add(1)
	go s.sweepLoop()
}

// Stop 타임아웃 스윕 루프 중지
func (s *BattleService) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	close(s.sweepStop)
	s.sweepWG.Wait()
	s.logger.Info("Battle timeout sweeper stopped")
}

func (s *BattleService) sweepLoop() {
	defer s.sweepWG.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.TimeoutSweep()
		case <-s.sweepStop:
			return
		}
	}
}

func (s *BattleService) liveBattle(battleID string) *liveBattle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live[battleID]
}

// pushNextQuestionLocked 다음 문제를 가져와 양쪽 참가자에게 전송
// lb.mu를 잡은 상태에서 호출해야 한다
func (s *BattleService) pushNextQuestionLocked(ctx context.Context, lb *liveBattle) error {
	battle := lb.battle

	question, err := s.questionBank.NextQuestion(ctx, battle.GradeID, battle.SubjectID, battle.AnsweredQuestionIDs)
	if err != nil {
		return err
	}

	view := question.ToBattleQuestion(battle.ID, battle.CurrentQuestion+1, battle.QuestionCount)
	for _, p := range battle.Players {
		s.notifier.SendToUser(p.PlayerID, "question", view)
	}

	return nil
}

// finishLocked 배틀 종료 처리 (승자 계산, 영속화, 브로드캐스트)
// lb.mu를 잡은 상태에서 호출해야 한다
func (s *BattleService) finishLocked(lb *liveBattle) {
	battle := lb.battle

	now := time.Now()
	battle.Status = models.BattleStatusEnded
	battle.EndedAt = &now
	battle.WinnerID = battle.ComputeWinner()

	s.persistLocked(lb)

	snapshot := battle.Clone()
	s.notifier.BroadcastToBattle(battle.ID, "battle_ended", snapshot)
	for _, p := range battle.Players {
		s.notifier.SendToUser(p.PlayerID, "battle_ended", snapshot)
	}

	s.mu.Lock()
	delete(s.live, battle.ID)
	s.mu.Unlock()

	s.registry.RemoveBattle(battle.ID)

	winner := "none"
	if battle.WinnerID != nil {
		winner = *battle.WinnerID
	}
	s.logger.Info("Battle ended",
		zap.String("battleId", battle.ID),
		zap.String("winner", winner),
		zap.Int("player1Score", battle.Players[0].Score),
		zap.Int("player2Score", battle.Players[1].Score))
}

// persistLocked 현재 상태를 이력 저장소에 기록
// 이력 기록 실패는 진행 중인 배틀을 막지 않는다 (로그만 남김)
func (s *BattleService) persistLocked(lb *liveBattle) {
	if err := s.store.Update(lb.battle); err != nil {
		s.logger.Error("Failed to persist battle state",
			zap.String("battleId", lb.battle.ID),
			zap.Error(err))
	}
}

func (s *BattleService) displayName(userID string) string {
	user, err := s.users.FindByID(userID)
	if err != nil || user == nil {
		return userID
	}
	return user.DisplayName()
}
