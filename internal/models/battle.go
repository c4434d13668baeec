package models

import "time"

type BattleStatus string

const (
	BattleStatusOngoing BattleStatus = "ongoing"
	BattleStatusEnded   BattleStatus = "ended"
)

// PlayerScore 배틀 참가자의 누적 점수
type PlayerScore struct {
	PlayerID         string `json:"playerId" db:"player_id"`
	PlayerName       string `json:"playerName" db:"player_name"`
	Score            int    `json:"score" db:"score"`
	CorrectAnswers   int    `json:"correctAnswers" db:"correct_answers"`
	IncorrectAnswers int    `json:"incorrectAnswers" db:"incorrect_answers"`
}

// Battle 1대1 퀴즈 대결 인스턴스
type Battle struct {
	ID                  string        `json:"id" db:"id"`
	Topic               string        `json:"topic" db:"topic"`
	GradeID             string        `json:"gradeId" db:"grade_id"`
	SubjectID           string        `json:"subjectId" db:"subject_id"`
	Status              BattleStatus  `json:"status" db:"status"`
	Players             []PlayerScore `json:"players"`
	WinnerID            *string       `json:"winnerId,omitempty" db:"winner_id"`
	QuestionCount       int           `json:"questionCount" db:"question_count"`
	CurrentQuestion     int           `json:"currentQuestion" db:"current_question"`
	AnsweredQuestionIDs []string      `json:"answeredQuestionIds" db:"answered_question_ids"`
	StartedAt           time.Time     `json:"startedAt" db:"started_at"`
	EndedAt             *time.Time    `json:"endedAt,omitempty" db:"ended_at"`
	CreatedAt           time.Time     `json:"createdAt" db:"created_at"`
}

// PlayerIndex 참가자의 배열 인덱스 (-1이면 참가자 아님)
func (b *Battle) PlayerIndex(playerID string) int {
	for i := range b.Players {
		if b.Players[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// HasAnswered 해당 문제가 이미 채점되었는지 확인
func (b *Battle) HasAnswered(questionID string) bool {
	for _, id := range b.AnsweredQuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// ComputeWinner 점수가 엄격히 높은 참가자 결정 (동점이면 nil)
func (b *Battle) ComputeWinner() *string {
	if len(b.Players) != 2 {
		return nil
	}
	if b.Players[0].Score > b.Players[1].Score {
		return &b.Players[0].PlayerID
	}
	if b.Players[1].Score > b.Players[0].Score {
		return &b.Players[1].PlayerID
	}
	return nil
}

// Clone 깊은 복사본 반환 (잠금 해제 후 스냅샷 전달용)
func (b *Battle) Clone() *Battle {
	c := *b
	c.Players = append([]PlayerScore(nil), b.Players...)
	c.AnsweredQuestionIDs = append([]string(nil), b.AnsweredQuestionIDs...)
	if b.WinnerID != nil {
		w := *b.WinnerID
		c.WinnerID = &w
	}
	if b.EndedAt != nil {
		t := *b.EndedAt
		c.EndedAt = &t
	}
	return &c
}
