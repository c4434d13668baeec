package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// Hub WebSocket 연결 레지스트리 및 브로드캐스트
// 사용자별 연결 집합과 배틀 룸(참가자/관전자 userID 집합)을 관리한다
type Hub struct {
	// 사용자별 연결 저장 (userID -> 연결 집합, 다중 접속 허용)
	clients map[string]map[*Client]bool

	// 배틀 룸 멤버십 (battleID -> userID 집합)
	rooms map[string]map[string]bool

	mu sync.RWMutex

	// 브로드캐스트 채널
	broadcast chan *Message

	// 등록/해제 채널
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// Message WebSocket 발신 메시지
type Message struct {
	UserID   string      `json:"-"` // 수신자 (BattleID가 비어 있을 때 사용)
	BattleID string      `json:"-"` // 배틀 룸 전체 발신
	Type     string      `json:"type"`
	Payload  interface{} `json:"payload"`
}

// NewHub Hub 생성
func NewHub() *Hub {
	logger, _ := zap.NewProduction()
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		rooms:      make(map[string]map[string]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 클라이언트 등록
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	// 배틀을 지정하고 접속한 경우 해당 룸에 합류
	if client.battleID != "" {
		h.joinBattleLocked(client.userID, client.battleID)
	}

	h.logger.Info("WebSocket client registered",
		zap.String("userId", client.userID),
		zap.Int("connections", len(h.clients[client.userID])))
}

// unregisterClient 클라이언트 해제
// 룸의 userID 항목은 유지된다 (배틀은 연결 종료로 끝나지 않음)
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, exists := h.clients[client.userID]
	if !exists || !conns[client] {
		return
	}

	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info("WebSocket client unregistered",
		zap.String("userId", client.userID))
}

// broadcastMessage 메시지 전달
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case message.BattleID != "":
		// 배틀 룸 전체에 전달 (중간에 사라진 연결은 건너뜀)
		for userID := range h.rooms[message.BattleID] {
			h.sendToUserLocked(userID, message)
		}

	case message.UserID != "":
		h.sendToUserLocked(message.UserID, message)

	default:
		// 전체 브로드캐스트
		for userID := range h.clients {
			h.sendToUserLocked(userID, message)
		}
	}
}

// sendToUserLocked 사용자의 모든 연결에 전달 (best-effort)
func (h *Hub) sendToUserLocked(userID string, message *Message) {
	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
			// 채널이 가득 찬 연결은 건너뛴다
			h.logger.Warn("Client send channel full, skipping",
				zap.String("userId", userID))
		}
	}
}

// SendToUser 특정 사용자에게 메시지 전송
func (h *Hub) SendToUser(userID string, msgType string, payload interface{}) {
	h.broadcast <- &Message{
		UserID:  userID,
		Type:    msgType,
		Payload: payload,
	}
}

// BroadcastToBattle 배틀 룸 전체에 메시지 전송
func (h *Hub) BroadcastToBattle(battleID string, msgType string, payload interface{}) {
	h.broadcast <- &Message{
		BattleID: battleID,
		Type:     msgType,
		Payload:  payload,
	}
}

// Broadcast 모든 사용자에게 메시지 전송
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.broadcast <- &Message{
		Type:    msgType,
		Payload: payload,
	}
}

// JoinBattle 사용자를 배틀 룸에 합류
func (h *Hub) JoinBattle(userID, battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinBattleLocked(userID, battleID)
}

// RemoveBattle 배틀 룸 제거 (배틀 종료 시)
func (h *Hub) RemoveBattle(battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, battleID)
}

// LeaveBattle 사용자를 배틀 룸에서 제거
func (h *Hub) LeaveBattle(userID, battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[battleID]; exists {
		delete(room, userID)
		if len(room) == 0 {
			delete(h.rooms, battleID)
		}
	}
}

// IsOnline 사용자의 라이브 연결 존재 여부
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) joinBattleLocked(userID, battleID string) {
	if h.rooms[battleID] == nil {
		h.rooms[battleID] = make(map[string]bool)
	}
	h.rooms[battleID][userID] = true
}
