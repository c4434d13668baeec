package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID, battleID string) *Client {
	return &Client{
		hub:      hub,
		send:     make(chan *Message, 8),
		userID:   userID,
		battleID: battleID,
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient(hub, "u1", "")
	c2 := newTestClient(hub, "u1", "") // 같은 사용자의 두 번째 연결

	hub.registerClient(c1)
	hub.registerClient(c2)
	assert.True(t, hub.IsOnline("u1"))

	hub.unregisterClient(c1)
	assert.True(t, hub.IsOnline("u1"), "user stays online while another connection remains")

	hub.unregisterClient(c2)
	assert.False(t, hub.IsOnline("u1"))

	// 중복 해제는 no-op
	hub.unregisterClient(c2)
}

func TestHub_RoomBroadcast(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient(hub, "u1", "")
	c2 := newTestClient(hub, "u2", "")
	c3 := newTestClient(hub, "u3", "")
	hub.registerClient(c1)
	hub.registerClient(c2)
	hub.registerClient(c3)

	hub.JoinBattle("u1", "b1")
	hub.JoinBattle("u2", "b1")

	hub.broadcastMessage(&Message{BattleID: "b1", Type: "battle_update"})

	require.Len(t, c1.send, 1)
	require.Len(t, c2.send, 1)
	assert.Empty(t, c3.send, "user outside the room must not receive room messages")

	msg := <-c1.send
	assert.Equal(t, "battle_update", msg.Type)
}

func TestHub_RoomSurvivesDisconnect(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient(hub, "u1", "b1")
	hub.registerClient(c1)
	hub.unregisterClient(c1)

	// 재접속하면 기존 룸 발신을 그대로 수신한다
	c1b := newTestClient(hub, "u1", "")
	hub.registerClient(c1b)

	hub.broadcastMessage(&Message{BattleID: "b1", Type: "battle_update"})
	assert.Len(t, c1b.send, 1)
}

func TestHub_RemoveBattle(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient(hub, "u1", "b1")
	hub.registerClient(c1)

	hub.RemoveBattle("b1")

	hub.broadcastMessage(&Message{BattleID: "b1", Type: "battle_update"})
	assert.Empty(t, c1.send, "removed room must not deliver messages")
}

func TestHub_SendToUnknownUser(t *testing.T) {
	hub := NewHub()

	// 연결이 없는 사용자에게의 전송은 조용히 버려진다
	hub.broadcastMessage(&Message{UserID: "ghost", Type: "question"})
}
