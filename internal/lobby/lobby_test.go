package lobby

import (
	"testing"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(id string) models.Player {
	return models.Player{ID: id, Name: "name-" + id, IsGuest: true}
}

func TestClampCapacity(t *testing.T) {
	assert.Equal(t, MaxCapacity, ClampCapacity(0))
	assert.Equal(t, MinCapacity, ClampCapacity(1))
	assert.Equal(t, MinCapacity, ClampCapacity(-4))
	assert.Equal(t, 6, ClampCapacity(6))
	assert.Equal(t, MaxCapacity, ClampCapacity(42))
}

func TestNewLobbyHostIsOnlyMember(t *testing.T) {
	l, err := New("room", member("h"), 4, 3, "")
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "h", l.HostID)
	assert.Len(t, l.Members, 1)
	assert.False(t, l.IsPrivate())
	assert.True(t, l.CheckPassword("anything"))
}

func TestPrivateLobbyPassword(t *testing.T) {
	l, err := New("secret", member("h"), 4, 3, "hunter2")
	require.NoError(t, err)
	assert.True(t, l.IsPrivate())
	assert.True(t, l.CheckPassword("hunter2"))
	assert.False(t, l.CheckPassword("hunter3"))
	assert.False(t, l.CheckPassword(""))
	assert.True(t, l.Summary().IsPrivate)
}

func TestAddMemberCapacity(t *testing.T) {
	l, err := New("room", member("h"), 2, 2, "")
	require.NoError(t, err)

	require.NoError(t, l.AddMember(member("a")))
	assert.ErrorIs(t, l.AddMember(member("b")), apperr.ErrLobbyFull)
	assert.ErrorIs(t, l.AddMember(member("a")), apperr.ErrAlreadyInLobby)
	assert.Len(t, l.Members, 2)
}

func TestRemoveMemberReassignsHost(t *testing.T) {
	l, err := New("room", member("h"), 5, 3, "")
	require.NoError(t, err)
	require.NoError(t, l.AddMember(member("a")))
	require.NoError(t, l.AddMember(member("b")))

	host, err := l.RemoveMember("a")
	require.NoError(t, err)
	assert.Equal(t, "h", host, "non-host leaving keeps the host")

	host, err = l.RemoveMember("h")
	require.NoError(t, err)
	assert.Equal(t, "b", host)
	assert.Equal(t, "b", l.HostID)

	_, err = l.RemoveMember("zz")
	assert.ErrorIs(t, err, apperr.ErrNotInLobby)

	_, err = l.RemoveMember("b")
	require.NoError(t, err)
	assert.Empty(t, l.Members)
	assert.Zero(t, l.HumanCount())
}

func TestInfoMarksHostAndBots(t *testing.T) {
	l, err := New("room", member("h"), 5, 3, "")
	require.NoError(t, err)
	bot := member("bot_1")
	bot.IsBot = true
	require.NoError(t, l.AddMember(bot))

	info := l.Info()
	require.Len(t, info.Players, 2)
	assert.True(t, info.Players[0].IsHost)
	assert.False(t, info.Players[1].IsHost)
	assert.True(t, info.Players[1].IsBot)
	assert.Equal(t, 1, l.HumanCount())
	assert.Equal(t, 2, info.PlayerCount)
	assert.False(t, info.HasCustomWords)
}

func TestWordSourceFallsBackToDefaults(t *testing.T) {
	l, err := New("room", member("h"), 5, 3, "")
	require.NoError(t, err)
	assert.Equal(t, game.DefaultWords(), l.WordSource())

	l.Words = game.WordSource{"Fruit": {"apple"}}
	ws := l.WordSource()
	ws["Fruit"][0] = "changed"
	assert.Equal(t, "apple", l.Words["Fruit"][0], "WordSource returns a copy")
}

func TestCanStart(t *testing.T) {
	l, err := New("room", member("h"), 5, 3, "")
	require.NoError(t, err)
	require.NoError(t, l.AddMember(member("a")))
	assert.False(t, l.CanStart())
	require.NoError(t, l.AddMember(member("b")))
	assert.True(t, l.CanStart())
}

func TestGenerateCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		require.Len(t, code, CodeLength)
		for _, c := range code {
			assert.Contains(t, CodeChars, string(c))
		}
	}
	assert.Equal(t, "ABC123", NormalizeCode("  abc123 "))
}

func TestStoreAssignsUniqueCodes(t *testing.T) {
	s := NewLobbyStore()
	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	s.genCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	l1, _ := New("one", member("h1"), 4, 3, "")
	l2, _ := New("two", member("h2"), 4, 3, "")
	s.Add(l1)
	s.Add(l2)

	assert.Equal(t, "AAAAAA", l1.Code)
	assert.Equal(t, "BBBBBB", l2.Code)

	got, ok := s.GetByCode("bbbbbb")
	require.True(t, ok)
	assert.Same(t, l2, got)

	s.Delete(l1.ID)
	_, ok = s.GetByCode("AAAAAA")
	assert.False(t, ok)
	_, ok = s.Get(l1.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStoreAllOldestFirst(t *testing.T) {
	s := NewLobbyStore()
	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		l, err := New("room", member("h"), 4, 3, "")
		require.NoError(t, err)
		l.CreatedAt = base.Add(time.Duration(3-i) * time.Second)
		s.Add(l)
		ids = append([]string{l.ID}, ids...)
	}
	all := s.All()
	require.Len(t, all, 3)
	for i, l := range all {
		assert.Equal(t, ids[i], l.ID)
	}
}
