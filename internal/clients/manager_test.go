package clients

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetControlReturnsReplaced(t *testing.T) {
	m := NewManager()
	a, b := &websocket.Conn{}, &websocket.Conn{}

	assert.Nil(t, m.SetControl("c1", a))
	assert.Same(t, a, m.SetControl("c1", b))
	assert.Nil(t, m.SetControl("c1", b))
	assert.Same(t, b, m.Control("c1"))
	assert.Equal(t, 1, m.Count())
}

func TestRemoveControlIgnoresStaleConn(t *testing.T) {
	m := NewManager()
	a, b := &websocket.Conn{}, &websocket.Conn{}
	m.SetControl("c1", a)
	m.SetControl("c1", b)

	m.RemoveControl("c1", a)
	assert.Same(t, b, m.Control("c1"))

	m.RemoveControl("c1", b)
	assert.Nil(t, m.Control("c1"))
	assert.Equal(t, 0, m.Count())

	m.RemoveControl("missing", a)
}

func TestForEachClientSnapshot(t *testing.T) {
	m := NewManager()
	m.SetControl("b", &websocket.Conn{})
	m.SetControl("a", &websocket.Conn{})

	var ids []string
	m.ForEachClient(func(id string) {
		ids = append(ids, id)
		m.RemoveControl(id, m.Control(id))
	})
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 0, m.Count())
}

func TestNewClientID(t *testing.T) {
	id := NewClientID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewClientID())
}
