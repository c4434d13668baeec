package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/TKim713/bee-smart-backend-sub000/internal/models"
	"github.com/TKim713/bee-smart-backend-sub000/internal/service"
	"go.uber.org/zap"
)

// Matchmaker 매칭 큐 진입점
type Matchmaker interface {
	Enqueue(ctx context.Context, playerID, gradeID, subjectID string) (*models.Battle, error)
	Withdraw(playerID string)
}

// BattleEngine 배틀 엔진 진입점
type BattleEngine interface {
	SubmitAnswer(ctx context.Context, battleID, playerID, questionID string, answer []string) (*models.Battle, error)
}

// InboundMessage 클라이언트 발신 메시지
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FindMatchPayload 매칭 요청
type FindMatchPayload struct {
	GradeID   string `json:"gradeId"`
	SubjectID string `json:"subjectId"`
}

// SubmitAnswerPayload 답안 제출
// Answer는 단일 문자열 또는 문자열 배열 (문제 유형에 따라)
type SubmitAnswerPayload struct {
	BattleID   string          `json:"battleId"`
	QuestionID string          `json:"questionId"`
	Answer     json.RawMessage `json:"answer"`
	TimeTaken  int             `json:"timeTaken"`
}

// MatchStartedPayload 매칭 성사 이벤트
type MatchStartedPayload struct {
	BattleID string `json:"battleId"`
	Topic    string `json:"topic,omitempty"`
}

// ErrorPayload 오류 이벤트
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Gateway 프로토콜 디코딩과 비즈니스 로직 호출 분리
// 수신 메시지를 해석해 Matchmaking/Battle 컴포넌트로 라우팅한다
type Gateway struct {
	hub        *Hub
	matchmaker Matchmaker
	engine     BattleEngine
	logger     *zap.Logger
}

func NewGateway(hub *Hub, matchmaker Matchmaker, engine BattleEngine) *Gateway {
	logger, _ := zap.NewProduction()
	return &Gateway{
		hub:        hub,
		matchmaker: matchmaker,
		engine:     engine,
		logger:     logger,
	}
}

// HandleMessage 수신 메시지 라우팅
func (g *Gateway) HandleMessage(c *Client, data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(c.userID, "InvalidMessage", "failed to parse message")
		return
	}

	switch msg.Type {
	case "find_match":
		g.handleFindMatch(c, msg.Payload)
	case "submit_answer":
		g.handleSubmitAnswer(c, msg.Payload)
	default:
		g.sendError(c.userID, "UnknownType", "unknown message type: "+msg.Type)
	}
}

// HandleDisconnect 연결 종료 처리
// 매칭 대기열에서만 제거하고 진행 중인 배틀은 건드리지 않는다
func (g *Gateway) HandleDisconnect(userID string) {
	g.matchmaker.Withdraw(userID)
}

func (g *Gateway) handleFindMatch(c *Client, payload json.RawMessage) {
	var req FindMatchPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.GradeID == "" || req.SubjectID == "" {
		g.sendError(c.userID, "InvalidMessage", "find_match requires gradeId and subjectId")
		return
	}

	battle, err := g.matchmaker.Enqueue(context.Background(), c.userID, req.GradeID, req.SubjectID)
	if err != nil {
		g.logger.Error("Matchmaking enqueue failed",
			zap.String("playerId", c.userID),
			zap.Error(err))
		g.sendError(c.userID, "MatchmakingFailed", "failed to enter matchmaking")
		return
	}

	if battle == nil {
		// 상대 대기 중
		g.hub.SendToUser(c.userID, "match_waiting", FindMatchPayload{
			GradeID:   req.GradeID,
			SubjectID: req.SubjectID,
		})
		return
	}

	// 양쪽 참가자에게 매칭 성사 알림
	// 첫 question 이벤트는 배틀 생성 시점에 이미 큐에 들어가 있어
	// match_started보다 먼저 도착할 수 있다
	started := MatchStartedPayload{BattleID: battle.ID, Topic: battle.Topic}
	for _, p := range battle.Players {
		g.hub.SendToUser(p.PlayerID, "match_started", started)
	}
}

func (g *Gateway) handleSubmitAnswer(c *Client, payload json.RawMessage) {
	var req SubmitAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.BattleID == "" || req.QuestionID == "" {
		g.sendError(c.userID, "InvalidMessage", "submit_answer requires battleId and questionId")
		return
	}

	answer, err := decodeAnswer(req.Answer)
	if err != nil {
		g.sendError(c.userID, "InvalidMessage", "answer must be a string or a list of strings")
		return
	}

	_, err = g.engine.SubmitAnswer(context.Background(), req.BattleID, c.userID, req.QuestionID, answer)
	if err != nil {
		g.sendError(c.userID, errorCode(err), err.Error())
		return
	}

	// 갱신된 스냅샷은 엔진이 배틀 룸 전체에 브로드캐스트한다
}

func (g *Gateway) sendError(userID, code, message string) {
	g.hub.SendToUser(userID, "error", ErrorPayload{Code: code, Message: message})
}

// decodeAnswer 단일 문자열 또는 문자열 배열 허용
func decodeAnswer(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty answer")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var multiple []string
	if err := json.Unmarshal(raw, &multiple); err == nil {
		// 빈 목록은 어떤 정답 집합과도 일치할 수 없으므로 거부
		if len(multiple) == 0 {
			return nil, errors.New("empty answer")
		}
		return multiple, nil
	}

	return nil, errors.New("invalid answer payload")
}

// errorCode 서비스 오류를 프로토콜 오류 코드로 변환
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrBattleEnded):
		return "AlreadyEnded"
	case errors.Is(err, service.ErrDuplicateAnswer):
		return "DuplicateAnswer"
	case errors.Is(err, service.ErrBattleNotFound), errors.Is(err, service.ErrNotFound):
		return "NotFound"
	case errors.Is(err, service.ErrForbidden):
		return "Forbidden"
	default:
		return "Internal"
	}
}
