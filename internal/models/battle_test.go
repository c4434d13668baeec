package models

import (
	"testing"
	"time"
)

func TestBattle_ComputeWinner(t *testing.T) {
	tests := []struct {
		name   string
		p1     int
		p2     int
		winner string // empty means no winner
	}{
		{name: "player1 wins", p1: 30, p2: 20, winner: "u1"},
		{name: "player2 wins", p1: 10, p2: 40, winner: "u2"},
		{name: "tie has no winner", p1: 20, p2: 20, winner: ""},
		{name: "zero-zero tie", p1: 0, p2: 0, winner: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			battle := &Battle{
				Players: []PlayerScore{
					{PlayerID: "u1", Score: tt.p1},
					{PlayerID: "u2", Score: tt.p2},
				},
			}

			winner := battle.ComputeWinner()
			if tt.winner == "" {
				if winner != nil {
					t.Errorf("ComputeWinner() = %q, want nil", *winner)
				}
				return
			}
			if winner == nil || *winner != tt.winner {
				t.Errorf("ComputeWinner() = %v, want %q", winner, tt.winner)
			}
		})
	}
}

func TestBattle_Clone(t *testing.T) {
	now := time.Now()
	winner := "u1"
	battle := &Battle{
		ID:                  "b1",
		Players:             []PlayerScore{{PlayerID: "u1", Score: 10}, {PlayerID: "u2"}},
		WinnerID:            &winner,
		AnsweredQuestionIDs: []string{"q1"},
		EndedAt:             &now,
	}

	clone := battle.Clone()

	// 복사본 변경이 원본에 영향을 주지 않아야 한다
	clone.Players[0].Score = 99
	clone.AnsweredQuestionIDs[0] = "qX"
	*clone.WinnerID = "u2"

	if battle.Players[0].Score != 10 {
		t.Errorf("original player score changed to %d", battle.Players[0].Score)
	}
	if battle.AnsweredQuestionIDs[0] != "q1" {
		t.Errorf("original answered questions changed to %v", battle.AnsweredQuestionIDs)
	}
	if *battle.WinnerID != "u1" {
		t.Errorf("original winner changed to %q", *battle.WinnerID)
	}
}

func TestBattleInvitation_IsExpired(t *testing.T) {
	now := time.Now()
	inv := &BattleInvitation{ExpiresAt: now}

	if inv.IsExpired(now.Add(-time.Second)) {
		t.Error("invitation before its deadline should not be expired")
	}
	if !inv.IsExpired(now) {
		t.Error("invitation at its deadline should be expired")
	}
	if !inv.IsExpired(now.Add(time.Second)) {
		t.Error("invitation past its deadline should be expired")
	}
}
