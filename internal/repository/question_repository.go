package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/TKim713/bee-smart-backend-sub000/internal/service"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/database"
	"github.com/lib/pq"
)

// QuestionRepository 문제 은행 어댑터의 프로덕션 구현
type QuestionRepository struct {
	db *database.DB
}

func NewQuestionRepository(db *database.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// NextQuestion 사용하지 않은 문제 하나를 무작위 선택
// 남은 문제가 없으면 service.ErrQuestionsExhausted 반환
func (r *QuestionRepository) NextQuestion(ctx context.Context, gradeID, subjectID string, exclude []string) (*models.Question, error) {
	query := `
		SELECT id, grade_id, subject_id, topic, content, type, options, correct_answers
		FROM questions
		WHERE grade_id = $1
		  AND subject_id = $2
		  AND NOT (id = ANY($3))
		ORDER BY RANDOM()
		LIMIT 1
	`

	if exclude == nil {
		exclude = []string{}
	}

	question := &models.Question{}
	err := r.db.QueryRowContext(ctx, query, gradeID, subjectID, pq.Array(exclude)).Scan(
		&question.ID,
		&question.GradeID,
		&question.SubjectID,
		&question.Topic,
		&question.Content,
		&question.Type,
		pq.Array(&question.Options),
		pq.Array(&question.CorrectAnswers),
	)

	if err == sql.ErrNoRows {
		return nil, service.ErrQuestionsExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch question: %w", err)
	}

	return question, nil
}

// CheckAnswer 제출 답안 채점 (정답 집합과 순서 무관 비교)
func (r *QuestionRepository) CheckAnswer(ctx context.Context, questionID string, answer []string) (bool, error) {
	query := `SELECT correct_answers FROM questions WHERE id = $1`

	var correct []string
	err := r.db.QueryRowContext(ctx, query, questionID).Scan(pq.Array(&correct))
	if err == sql.ErrNoRows {
		return false, service.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch correct answers: %w", err)
	}

	return answersEqual(answer, correct), nil
}

func answersEqual(submitted, correct []string) bool {
	if len(submitted) != len(correct) {
		return false
	}

	a := append([]string(nil), submitted...)
	b := append([]string(nil), correct...)
	sort.Strings(a)
	sort.Strings(b)

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
