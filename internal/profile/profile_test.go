package profile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionDefaults(t *testing.T) {
	c := NewConnection("lab", "broker.example", 1883)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, ProtocolMQTT, c.Protocol)
	require.Len(t, c.Subscriptions, 1)
	assert.Equal(t, DefaultSubscription(), c.Subscriptions[0])
	assert.False(t, c.CreatedAt.IsZero())
}

func TestEffectiveClientID(t *testing.T) {
	c := NewConnection("lab", "broker.example", 1883)

	c.UseCustomClientID = true
	c.ClientID = "pinned-id"
	assert.Equal(t, "pinned-id", c.EffectiveClientID())

	c.UseCustomClientID = false
	first := c.EffectiveClientID()
	second := c.EffectiveClientID()
	assert.True(t, strings.HasPrefix(first, "mqttscope-"))
	assert.NotEqual(t, first, second, "generated ids are unique per call")
}

func TestURI(t *testing.T) {
	c := NewConnection("lab", "broker.example", 8883)
	c.Protocol = ProtocolMQTTS
	c.Username = "alice"
	assert.Equal(t, "mqtts://alice@broker.example:8883", c.URI())

	c.Username = ""
	c.Protocol = ""
	assert.Equal(t, "mqtt://broker.example:8883", c.URI())
}

func TestProtocolDefaultPorts(t *testing.T) {
	assert.Equal(t, uint16(1883), ProtocolMQTT.DefaultPort())
	assert.Equal(t, uint16(8883), ProtocolMQTTS.DefaultPort())
	assert.Equal(t, uint16(8083), ProtocolWS.DefaultPort())
	assert.Equal(t, uint16(8084), ProtocolWSS.DefaultPort())
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	store, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, store.Connections)

	c := NewConnection("lab", "broker.example", 1883)
	store.Add(c)
	store.LastOpenedTabs = []string{c.ID}
	require.NoError(t, store.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reloaded.Connections, 1)
	assert.Equal(t, c.ID, reloaded.Connections[0].ID)
	assert.Equal(t, []string{c.ID}, reloaded.LastOpenedTabs)
}

func TestStoreUpdateAndRemove(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	c := NewConnection("lab", "broker.example", 1883)
	store.Add(c)
	store.LastOpenedTabs = []string{c.ID, "other"}

	c.Name = "renamed"
	store.Update(c)
	got, ok := store.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)

	store.Remove(c.ID)
	_, ok = store.Get(c.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{"other"}, store.LastOpenedTabs, "tab references follow the profile")
}
