package repository

import (
	"database/sql"
	"fmt"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/database"
	"github.com/lib/pq"
)

type BattleRepository struct {
	db *database.DB
}

func NewBattleRepository(db *database.DB) *BattleRepository {
	return &BattleRepository{db: db}
}

// Create 새 배틀 저장
func (r *BattleRepository) Create(battle *models.Battle) error {
	query := `
		INSERT INTO battles (
			id, topic, grade_id, subject_id, status,
			player1_id, player1_name, player2_id, player2_name,
			question_count, current_question, answered_question_ids, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(query,
		battle.ID,
		battle.Topic,
		battle.GradeID,
		battle.SubjectID,
		battle.Status,
		battle.Players[0].PlayerID,
		battle.Players[0].PlayerName,
		battle.Players[1].PlayerID,
		battle.Players[1].PlayerName,
		battle.QuestionCount,
		battle.CurrentQuestion,
		pq.Array(battle.AnsweredQuestionIDs),
		battle.StartedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create battle: %w", err)
	}

	return nil
}

// Update 배틀 상태 변경 저장 (점수, 상태, 승자 포함)
func (r *BattleRepository) Update(battle *models.Battle) error {
	query := `
		UPDATE battles
		SET status = $1,
		    winner_id = $2,
		    player1_score = $3,
		    player1_correct = $4,
		    player1_incorrect = $5,
		    player2_score = $6,
		    player2_correct = $7,
		    player2_incorrect = $8,
		    current_question = $9,
		    answered_question_ids = $10,
		    ended_at = $11
		WHERE id = $12
	`

	_, err := r.db.Exec(query,
		battle.Status,
		battle.WinnerID,
		battle.Players[0].Score,
		battle.Players[0].CorrectAnswers,
		battle.Players[0].IncorrectAnswers,
		battle.Players[1].Score,
		battle.Players[1].CorrectAnswers,
		battle.Players[1].IncorrectAnswers,
		battle.CurrentQuestion,
		pq.Array(battle.AnsweredQuestionIDs),
		battle.EndedAt,
		battle.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update battle: %w", err)
	}

	return nil
}

// FindByID ID로 배틀 찾기 (없으면 nil)
func (r *BattleRepository) FindByID(id string) (*models.Battle, error) {
	query := `
		SELECT id, topic, grade_id, subject_id, status, winner_id,
		       player1_id, player1_name, player1_score, player1_correct, player1_incorrect,
		       player2_id, player2_name, player2_score, player2_correct, player2_incorrect,
		       question_count, current_question, answered_question_ids,
		       started_at, ended_at, created_at
		FROM battles
		WHERE id = $1
	`

	battle, err := r.scanBattle(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find battle: %w", err)
	}

	return battle, nil
}

// FindByPlayerID 참가자의 배틀 이력 (최신순)
func (r *BattleRepository) FindByPlayerID(playerID string, limit, offset int) ([]*models.Battle, error) {
	query := `
		SELECT id, topic, grade_id, subject_id, status, winner_id,
		       player1_id, player1_name, player1_score, player1_correct, player1_incorrect,
		       player2_id, player2_name, player2_score, player2_correct, player2_incorrect,
		       question_count, current_question, answered_question_ids,
		       started_at, ended_at, created_at
		FROM battles
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	var battles []*models.Battle
	for rows.Next() {
		battle, err := r.scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		battles = append(battles, battle)
	}

	return battles, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *BattleRepository) scanBattle(row rowScanner) (*models.Battle, error) {
	battle := &models.Battle{
		Players: make([]models.PlayerScore, 2),
	}

	err := row.Scan(
		&battle.ID,
		&battle.Topic,
		&battle.GradeID,
		&battle.SubjectID,
		&battle.Status,
		&battle.WinnerID,
		&battle.Players[0].PlayerID,
		&battle.Players[0].PlayerName,
		&battle.Players[0].Score,
		&battle.Players[0].CorrectAnswers,
		&battle.Players[0].IncorrectAnswers,
		&battle.Players[1].PlayerID,
		&battle.Players[1].PlayerName,
		&battle.Players[1].Score,
		&battle.Players[1].CorrectAnswers,
		&battle.Players[1].IncorrectAnswers,
		&battle.QuestionCount,
		&battle.CurrentQuestion,
		pq.Array(&battle.AnsweredQuestionIDs),
		&battle.StartedAt,
		&battle.EndedAt,
		&battle.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return battle, nil
}
