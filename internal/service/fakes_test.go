package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
)

// fakeBattleStore 인메모리 배틀 저장소
type fakeBattleStore struct {
	mu      sync.Mutex
	battles map[string]*models.Battle
	failAll bool
}

func newFakeBattleStore() *fakeBattleStore {
	return &fakeBattleStore{battles: make(map[string]*models.Battle)}
}

func (f *fakeBattleStore) Create(battle *models.Battle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store unavailable")
	}
	f.battles[battle.ID] = battle.Clone()
	return nil
}

func (f *fakeBattleStore) Update(battle *models.Battle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store unavailable")
	}
	f.battles[battle.ID] = battle.Clone()
	return nil
}

func (f *fakeBattleStore) FindByID(id string) (*models.Battle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	battle, exists := f.battles[id]
	if !exists {
		return nil, nil
	}
	return battle.Clone(), nil
}

func (f *fakeBattleStore) FindByPlayerID(playerID string, limit, offset int) ([]*models.Battle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Battle
	for _, battle := range f.battles {
		if battle.PlayerIndex(playerID) >= 0 {
			result = append(result, battle.Clone())
		}
	}
	return result, nil
}

// fakeQuestionBank 고정 문제 목록 기반 문제 은행
type fakeQuestionBank struct {
	mu        sync.Mutex
	questions []*models.Question
	answers   map[string][]string // questionID -> 정답
}

func newFakeQuestionBank(count int) *fakeQuestionBank {
	bank := &fakeQuestionBank{answers: make(map[string][]string)}
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("q%d", i)
		bank.questions = append(bank.questions, &models.Question{
			ID:        id,
			GradeID:   "5",
			SubjectID: "math",
			Content:   fmt.Sprintf("Question %d", i),
			Type:      models.QuestionTypeSingleChoice,
			Options:   []string{"A", "B", "C", "D"},
		})
		bank.answers[id] = []string{"A"}
	}
	return bank
}

func (f *fakeQuestionBank) NextQuestion(ctx context.Context, gradeID, subjectID string, exclude []string) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	for _, q := range f.questions {
		if !excluded[q.ID] && q.GradeID == gradeID && q.SubjectID == subjectID {
			return q, nil
		}
	}

	return nil, ErrQuestionsExhausted
}

func (f *fakeQuestionBank) CheckAnswer(ctx context.Context, questionID string, answer []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	correct, exists := f.answers[questionID]
	if !exists {
		return false, ErrNotFound
	}

	if len(answer) != len(correct) {
		return false, nil
	}
	for i := range answer {
		if answer[i] != correct[i] {
			return false, nil
		}
	}
	return true, nil
}

// notifierEvent 전송된 알림 기록
type notifierEvent struct {
	UserID   string
	BattleID string
	Type     string
	Payload  interface{}
}

// fakeNotifier 알림 기록용
type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (f *fakeNotifier) SendToUser(userID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifierEvent{UserID: userID, Type: msgType, Payload: payload})
}

func (f *fakeNotifier) BroadcastToBattle(battleID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifierEvent{BattleID: battleID, Type: msgType, Payload: payload})
}

func (f *fakeNotifier) eventsOfType(msgType string) []notifierEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []notifierEvent
	for _, e := range f.events {
		if e.Type == msgType {
			result = append(result, e)
		}
	}
	return result
}

// fakeRegistry 배틀 룸 멤버십 기록용
type fakeRegistry struct {
	mu      sync.Mutex
	joined  map[string][]string // battleID -> userIDs
	removed []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{joined: make(map[string][]string)}
}

func (f *fakeRegistry) JoinBattle(userID, battleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined[battleID] = append(f.joined[battleID], userID)
}

func (f *fakeRegistry) RemoveBattle(battleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, battleID)
}

// fakeUsers 사용자 디렉터리
type fakeUsers struct {
	users map[string]*models.User
}

func newFakeUsers(ids ...string) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*models.User)}
	for _, id := range ids {
		f.users[id] = &models.User{ID: id, Username: id, FullName: "Player " + id}
	}
	return f
}

func (f *fakeUsers) FindByID(id string) (*models.User, error) {
	return f.users[id], nil
}

// fakeInvitationStore 인메모리 초대 저장소
type fakeInvitationStore struct {
	mu          sync.Mutex
	invitations map[string]*models.BattleInvitation

	// 중복 검사와 삽입 사이의 경합 재현용 지연
	pendingCheckDelay time.Duration
}

func newFakeInvitationStore() *fakeInvitationStore {
	return &fakeInvitationStore{invitations: make(map[string]*models.BattleInvitation)}
}

func (f *fakeInvitationStore) Create(inv *models.BattleInvitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *inv
	f.invitations[inv.ID] = &copied
	return nil
}

func (f *fakeInvitationStore) FindByID(id string) (*models.BattleInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, exists := f.invitations[id]
	if !exists {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeInvitationStore) HasPendingBetween(inviterID, inviteeID string, now time.Time) (bool, error) {
	if f.pendingCheckDelay > 0 {
		time.Sleep(f.pendingCheckDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.InviterID == inviterID && inv.InviteeID == inviteeID &&
			inv.Status == models.InvitationStatusPending && now.Before(inv.ExpiresAt) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvitationStore) UpdateStatusIfPending(id string, status models.InvitationStatus, battleID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, exists := f.invitations[id]
	if !exists || inv.Status != models.InvitationStatusPending {
		return false, nil
	}
	inv.Status = status
	inv.BattleID = battleID
	inv.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeInvitationStore) FindPendingByInvitee(inviteeID string, now time.Time) ([]*models.BattleInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.BattleInvitation
	for _, inv := range f.invitations {
		if inv.InviteeID == inviteeID && inv.Status == models.InvitationStatusPending && now.Before(inv.ExpiresAt) {
			copied := *inv
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeInvitationStore) FindByInviter(inviterID string, limit int) ([]*models.BattleInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.BattleInvitation
	for _, inv := range f.invitations {
		if inv.InviterID == inviterID {
			copied := *inv
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeInvitationStore) FindExpiredPending(now time.Time) ([]*models.BattleInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.BattleInvitation
	for _, inv := range f.invitations {
		if inv.Status == models.InvitationStatusPending && !now.Before(inv.ExpiresAt) {
			copied := *inv
			result = append(result, &copied)
		}
	}
	return result, nil
}

// newTestBattleService 테스트용 배틀 엔진 조립
func newTestBattleService(questionCount int) (*BattleService, *fakeBattleStore, *fakeQuestionBank, *fakeNotifier, *fakeRegistry) {
	store := newFakeBattleStore()
	bank := newFakeQuestionBank(questionCount + 5)
	notifier := &fakeNotifier{}
	registry := newFakeRegistry()
	users := newFakeUsers("u1", "u2", "u3", "u4")

	svc := NewBattleService(store, bank, users, notifier, registry, BattleServiceConfig{
		QuestionCount: questionCount,
		ScoreReward:   10,
		Timeout:       10 * time.Minute,
		SweepInterval: time.Hour,
	})

	return svc, store, bank, notifier, registry
}
