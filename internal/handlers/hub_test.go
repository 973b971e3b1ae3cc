package handlers

import (
	"encoding/json"
	"testing"

	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Conn) []models.Request {
	var out []models.Request
	for {
		select {
		case raw := <-c.OutChan:
			var f models.Request
			_ = json.Unmarshal(raw, &f)
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	h := NewHub(quietLogger())
	a, b, other := newConn("a"), newConn("b"), newConn("x")
	for _, c := range []*Conn{a, b, other} {
		h.Register(c)
	}
	h.Subscribe("a", "L1")
	h.Subscribe("b", "L1")
	h.Subscribe("x", "L2")

	h.Broadcast("L1", "lobby:updated", map[string]int{"n": 1}, "a")
	assert.Empty(t, drain(a))
	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, "lobby:updated", got[0].Event)
	assert.JSONEq(t, `{"n":1}`, string(got[0].Data))
	assert.Empty(t, drain(other))

	h.SendTo("x", "game:state", nil)
	assert.Len(t, drain(other), 1)
}

func TestHubRemoveDropsSubscriptions(t *testing.T) {
	h := NewHub(quietLogger())
	a := newConn("a")
	h.Register(a)
	h.Subscribe("a", "L1")
	assert.Equal(t, 1, h.Members("L1"))

	h.Remove("a")
	assert.Equal(t, 0, h.Members("L1"))
	h.SendTo("a", "game:state", nil)
	assert.Empty(t, drain(a))
}

func TestHubDropsSlowConsumer(t *testing.T) {
	h := NewHub(quietLogger())
	a := newConn("a")
	h.Register(a)

	for i := 0; i < outQueueSize; i++ {
		h.SendTo("a", "tick", i)
	}
	select {
	case <-a.done:
		t.Fatal("dropped before the queue was full")
	default:
	}

	h.SendTo("a", "tick", outQueueSize)
	select {
	case <-a.done:
	default:
		t.Fatal("expected the connection to be dropped")
	}
}

func TestClampText(t *testing.T) {
	assert.Equal(t, "snow", clampText("  snow  ", maxClueLength))
	assert.Equal(t, "ééé", clampText("éééé", 3))
	assert.Equal(t, "", clampText("   ", maxNameLength))
	assert.Equal(t, "ab", clampText("ab c", 3))
}
