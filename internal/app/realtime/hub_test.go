package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(nil, zap.NewNop())
}

func TestBroadcastFansOutToRegisteredClientsOfSameContest(t *testing.T) {
	hub := newTestHub(t)

	clientA := newClient(hub, nil, "contest-1", zap.NewNop())
	clientB := newClient(hub, nil, "contest-1", zap.NewNop())
	clientOther := newClient(hub, nil, "contest-2", zap.NewNop())

	hub.clients[clientA.contestID] = map[*Client]bool{clientA: true, clientB: true}
	hub.clients[clientOther.contestID] = map[*Client]bool{clientOther: true}

	hub.broadcast("contest:contest-1:leaderboard", `{"rank":1}`)

	select {
	case msg := <-clientA.send:
		assert.JSONEq(t, `{"rank":1}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("clientA did not receive broadcast")
	}

	select {
	case msg := <-clientB.send:
		assert.JSONEq(t, `{"rank":1}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("clientB did not receive broadcast")
	}

	select {
	case <-clientOther.send:
		t.Fatal("client registered for a different contest should not receive the broadcast")
	default:
	}
}

func TestBroadcastIgnoresMalformedChannelName(t *testing.T) {
	hub := newTestHub(t)
	clientA := newClient(hub, nil, "contest-1", zap.NewNop())
	hub.clients[clientA.contestID] = map[*Client]bool{clientA: true}

	require.NotPanics(t, func() {
		hub.broadcast("not-a-leaderboard-channel", `{"rank":1}`)
	})

	select {
	case <-clientA.send:
		t.Fatal("no broadcast should have been delivered for an unparseable channel")
	default:
	}
}

func TestSendSnapshotClosesClientWhenBufferFull(t *testing.T) {
	hub := newTestHub(t)
	client := newClient(hub, nil, "contest-1", zap.NewNop())

	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("x")
	}

	client.sendSnapshot(map[string]int{"rank": 1})

	// A closed channel still yields its buffered messages first.
	for i := 0; i < cap(client.send); i++ {
		<-client.send
	}
	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed once full")
}
