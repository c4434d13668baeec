package models

type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiChoice  QuestionType = "multi_choice"
)

// Question 문제 은행의 문제
type Question struct {
	ID             string       `json:"id" db:"id"`
	GradeID        string       `json:"gradeId" db:"grade_id"`
	SubjectID      string       `json:"subjectId" db:"subject_id"`
	Topic          string       `json:"topic" db:"topic"`
	Content        string       `json:"content" db:"content"`
	Type           QuestionType `json:"type" db:"type"`
	Options        []string     `json:"options" db:"options"`
	CorrectAnswers []string     `json:"-" db:"correct_answers"` // 클라이언트에 노출 금지
}

// BattleQuestion 배틀 참가자에게 전송되는 문제 뷰
type BattleQuestion struct {
	BattleID       string       `json:"battleId"`
	QuestionID     string       `json:"questionId"`
	Content        string       `json:"content"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options"`
	QuestionNumber int          `json:"questionNumber"`
	QuestionTotal  int          `json:"questionTotal"`
}

// ToBattleQuestion 배틀용 문제 뷰 변환
func (q *Question) ToBattleQuestion(battleID string, number, total int) *BattleQuestion {
	return &BattleQuestion{
		BattleID:       battleID,
		QuestionID:     q.ID,
		Content:        q.Content,
		Type:           q.Type,
		Options:        q.Options,
		QuestionNumber: number,
		QuestionTotal:  total,
	}
}
