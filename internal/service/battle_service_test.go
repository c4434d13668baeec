package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBattleService_Create(t *testing.T) {
	svc, store, _, notifier, registry := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "fractions", "5", "math")
	require.NoError(t, err)
	require.NotNil(t, battle)

	assert.NotEmpty(t, battle.ID)
	assert.Equal(t, models.BattleStatusOngoing, battle.Status)
	assert.Equal(t, 10, battle.QuestionCount)
	assert.Equal(t, 0, battle.CurrentQuestion)
	assert.Len(t, battle.Players, 2)
	assert.Equal(t, "u1", battle.Players[0].PlayerID)
	assert.Equal(t, "u2", battle.Players[1].PlayerID)
	assert.Zero(t, battle.Players[0].Score)
	assert.Zero(t, battle.Players[1].Score)
	assert.Nil(t, battle.WinnerID)

	stored, err := store.FindByID(battle.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.BattleStatusOngoing, stored.Status)

	// 양쪽 참가자 모두 배틀 룸에 등록
	assert.ElementsMatch(t, []string{"u1", "u2"}, registry.joined[battle.ID])

	// 첫 문제가 양쪽에 전송됨
	questions := notifier.eventsOfType("question")
	require.Len(t, questions, 2)
	assert.ElementsMatch(t, []string{"u1", "u2"}, []string{questions[0].UserID, questions[1].UserID})
}

func TestBattleService_Create_InvalidPlayers(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	cases := [][]string{
		{"u1"},
		{"u1", "u2", "u3"},
		{"u1", "u1"},
		{"", "u2"},
		{"u1", ""},
	}

	for _, playerIDs := range cases {
		_, err := svc.Create(ctx, playerIDs, "", "5", "math")
		assert.ErrorIs(t, err, ErrInvalidPlayers, "playerIDs=%v", playerIDs)
	}
}

func TestBattleService_SubmitAnswer_Scoring(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	// u1 정답
	updated, err := svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Players[0].Score)
	assert.Equal(t, 1, updated.Players[0].CorrectAnswers)
	assert.Zero(t, updated.Players[1].Score)
	assert.Equal(t, 1, updated.CurrentQuestion)

	// u2 오답
	updated, err = svc.SubmitAnswer(ctx, battle.ID, "u2", "q2", []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Players[0].Score)
	assert.Zero(t, updated.Players[1].Score)
	assert.Equal(t, 1, updated.Players[1].IncorrectAnswers)
	assert.Equal(t, 2, updated.CurrentQuestion)
}

func TestBattleService_SubmitAnswer_Duplicate(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)

	// 같은 문제에 대한 두 번째 제출은 채점되지 않는다
	_, err = svc.SubmitAnswer(ctx, battle.ID, "u2", "q1", []string{"A"})
	assert.ErrorIs(t, err, ErrDuplicateAnswer)

	snapshot, err := svc.GetByID(ctx, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, snapshot.Players[0].Score)
	assert.Zero(t, snapshot.Players[1].Score)
	assert.Zero(t, snapshot.Players[1].IncorrectAnswers)
	assert.Equal(t, 1, snapshot.CurrentQuestion)
}

func TestBattleService_SubmitAnswer_NotParticipant(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, battle.ID, "u3", "q1", []string{"A"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBattleService_SubmitAnswer_UnknownBattle(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, "no-such-battle", "u1", "q1", []string{"A"})
	assert.ErrorIs(t, err, ErrBattleNotFound)
}

func TestBattleService_Termination_Winner(t *testing.T) {
	svc, store, _, notifier, _ := newTestBattleService(3)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	// u1이 두 문제 정답, u2가 마지막 문제 오답
	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q2", []string{"A"})
	require.NoError(t, err)
	final, err := svc.SubmitAnswer(ctx, battle.ID, "u2", "q3", []string{"C"})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusEnded, final.Status)
	require.NotNil(t, final.WinnerID)
	assert.Equal(t, "u1", *final.WinnerID)
	require.NotNil(t, final.EndedAt)

	// 종료 후에는 이력만 남고 추가 제출은 거부
	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q4", []string{"A"})
	assert.ErrorIs(t, err, ErrBattleEnded)

	stored, err := store.FindByID(battle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, stored.Status)

	assert.NotEmpty(t, notifier.eventsOfType("battle_ended"))
}

func TestBattleService_Termination_Tie(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(2)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)
	final, err := svc.SubmitAnswer(ctx, battle.ID, "u2", "q2", []string{"A"})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusEnded, final.Status)
	assert.Equal(t, final.Players[0].Score, final.Players[1].Score)
	assert.Nil(t, final.WinnerID)
}

func TestBattleService_QuestionsExhausted(t *testing.T) {
	// 문제 은행에 남은 문제가 배틀 길이보다 적으면 조기 종료
	store := newFakeBattleStore()
	bank := newFakeQuestionBank(2)
	notifier := &fakeNotifier{}
	users := newFakeUsers("u1", "u2")

	svc := NewBattleService(store, bank, users, notifier, newFakeRegistry(), BattleServiceConfig{
		QuestionCount: 10,
		ScoreReward:   10,
		Timeout:       10 * time.Minute,
		SweepInterval: time.Hour,
	})
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)
	final, err := svc.SubmitAnswer(ctx, battle.ID, "u2", "q2", []string{"A"})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusEnded, final.Status)
}

func TestBattleService_StoreFailureDoesNotBlockPlay(t *testing.T) {
	svc, store, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	// 이력 저장소가 죽어도 진행 중인 배틀은 계속되어야 한다
	store.mu.Lock()
	store.failAll = true
	store.mu.Unlock()

	updated, err := svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Players[0].Score)

	ended, err := svc.End(ctx, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, ended.Status)
}

func TestBattleService_End_Idempotent(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, battle.ID, "u1", "q1", []string{"A"})
	require.NoError(t, err)

	ended, err := svc.End(ctx, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, ended.Status)
	require.NotNil(t, ended.WinnerID)
	assert.Equal(t, "u1", *ended.WinnerID)
	firstEndedAt := *ended.EndedAt

	// 두 번째 End는 상태 변경 없이 성공
	again, err := svc.End(ctx, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, again.Status)
	assert.WithinDuration(t, firstEndedAt, *again.EndedAt, time.Second)

	_, err = svc.End(ctx, "no-such-battle")
	assert.ErrorIs(t, err, ErrBattleNotFound)
}

func TestBattleService_TimeoutSweep(t *testing.T) {
	svc, store, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	expired, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, []string{"u3", "u4"}, "", "5", "math")
	require.NoError(t, err)

	// 제한 시간을 넘긴 것처럼 시작 시각을 과거로 조정
	svc.mu.RLock()
	svc.live[expired.ID].battle.StartedAt = time.Now().Add(-11 * time.Minute)
	svc.mu.RUnlock()

	svc.TimeoutSweep()

	storedExpired, err := store.FindByID(expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, storedExpired.Status)

	storedFresh, err := svc.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusOngoing, storedFresh.Status)
}

func TestBattleService_ConcurrentSubmissions(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	battle, err := svc.Create(ctx, []string{"u1", "u2"}, "", "5", "math")
	require.NoError(t, err)

	// 같은 문제에 동시 제출하면 정확히 하나만 채점된다
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, playerID := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, playerID string) {
			defer wg.Done()
			_, errs[i] = svc.SubmitAnswer(ctx, battle.ID, playerID, "q1", []string{"A"})
		}(i, playerID)
	}
	wg.Wait()

	duplicates := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrDuplicateAnswer)
			duplicates++
		}
	}
	assert.Equal(t, 1, duplicates)

	snapshot, err := svc.GetByID(ctx, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.CurrentQuestion)
	assert.Equal(t, 10, snapshot.Players[0].Score+snapshot.Players[1].Score)
}

func TestBattleService_GetHistory(t *testing.T) {
	svc, _, _, _, _ := newTestBattleService(10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		battle, err := svc.Create(ctx, []string{"u1", fmt.Sprintf("u%d", i+2)}, "", "5", "math")
		require.NoError(t, err)
		_, err = svc.End(ctx, battle.ID)
		require.NoError(t, err)
	}

	history, err := svc.GetHistory(ctx, "u1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	history, err = svc.GetHistory(ctx, "u2", 1, 20)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
