// internal/coordinator/players.go
package coordinator

import (
	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/lobby"
	"github.com/jason-s-yu/crystal-clear/internal/scheduler"
	"github.com/jason-s-yu/crystal-clear/internal/session"
	"github.com/sirupsen/logrus"
)

// Join mints a player identity for connID.
func (c *Coordinator) Join(connID string, prof session.Profile) JoinResult {
	c.displace(connID, "")
	s := c.sessions.Join(connID, prof)
	c.log.WithFields(logrus.Fields{"player": s.Player.ID, "conn": connID}).Info("player joined")
	return JoinResult{
		Player:       s.Player,
		Token:        c.issueToken(s.Player.ID),
		ServerConfig: c.ServerConfig(),
	}
}

func (c *Coordinator) issueToken(playerID string) string {
	if c.tokens == nil {
		return ""
	}
	tok, err := c.tokens.Issue(playerID)
	if err != nil {
		c.log.WithError(err).Warn("failed to issue reconnect token")
		return ""
	}
	return tok
}

// tokenAllows reports whether a reconnect as playerID may proceed with token.
func (c *Coordinator) tokenAllows(playerID, token string) bool {
	if c.tokens == nil {
		return true
	}
	if token == "" {
		return !c.cfg.RequireReconnectToken
	}
	sub, err := c.tokens.Verify(token)
	return err == nil && sub == playerID
}

// Reconnect resumes playerID on connID. The player's lobby group is rejoined
// and the lobby and their game view are resent privately. An unknown id or a
// token that doesn't match falls back to a fresh identity with Restored false.
func (c *Coordinator) Reconnect(connID, playerID, token string, prof session.Profile) JoinResult {
	entry := c.log.WithFields(logrus.Fields{"player": playerID, "conn": connID})
	if !c.tokenAllows(playerID, token) {
		entry.Warn("reconnect token rejected, issuing new identity")
		return c.Join(connID, prof)
	}

	c.displace(connID, playerID)
	oldConn, _ := c.sessions.ConnectionFor(playerID)
	s, restored := c.sessions.Reconnect(connID, playerID, prof)
	if !restored {
		entry.Info("unknown player on reconnect, issuing new identity")
		return JoinResult{
			Player:       s.Player,
			Token:        c.issueToken(s.Player.ID),
			ServerConfig: c.ServerConfig(),
		}
	}
	c.cancelReap(playerID)

	res := JoinResult{
		Player:       s.Player,
		Token:        c.issueToken(playerID),
		ServerConfig: c.ServerConfig(),
		Restored:     true,
	}
	if s.LobbyID == "" {
		entry.Info("player reconnected")
		return res
	}
	if oldConn != "" && oldConn != connID {
		c.out.Unsubscribe(oldConn, s.LobbyID)
	}

	l, err := c.lockLobby(s.LobbyID)
	if err != nil {
		c.sessions.SetLobby(playerID, "")
		return res
	}
	defer l.Mu.Unlock()
	if !l.HasMember(playerID) {
		c.sessions.SetLobby(playerID, "")
		return res
	}
	l.UpdateMember(s.Player)
	if l.Game != nil {
		if p, ok := l.Game.Participant(playerID); ok {
			p.Name = s.Player.Name
			p.ProfilePicIndex = s.Player.ProfilePicIndex
		}
	}
	c.resync(l, connID, playerID, &res)
	entry.WithField("lobby", l.ID).Info("player reconnected")
	return res
}

// Rejoin re-subscribes the caller to a lobby they are still a member of, after
// the transport reconnected without a player:reconnect.
func (c *Coordinator) Rejoin(connID, lobbyID string) (JoinResult, error) {
	s, err := c.session(connID)
	if err != nil {
		return JoinResult{}, err
	}
	l, err := c.lockLobby(lobbyID)
	if err != nil {
		return JoinResult{}, err
	}
	defer l.Mu.Unlock()
	if !l.HasMember(s.Player.ID) {
		return JoinResult{}, apperr.ErrNotInLobby
	}
	c.sessions.SetLobby(s.Player.ID, l.ID)
	res := JoinResult{Player: s.Player, ServerConfig: c.ServerConfig(), Restored: true}
	c.resync(l, connID, s.Player.ID, &res)
	return res, nil
}

// resync subscribes connID to the lobby group and pushes the lobby and game
// view to it alone. Assumes l.Mu is held.
func (c *Coordinator) resync(l *lobby.Lobby, connID, playerID string, res *JoinResult) {
	c.out.Subscribe(connID, l.ID)
	info := l.Info()
	res.Lobby = &info
	c.out.SendTo(connID, EventLobbyUpdated, info)
	if l.Game != nil {
		view := l.Game.ViewFor(playerID)
		res.State = &view
		c.out.SendTo(connID, EventGameState, view)
	}
}

// displace detaches the identity connID is bound to before the connection takes
// another one, unless that identity is keepPlayerID. The old identity is
// treated as disconnected and leaves its lobby's group.
func (c *Coordinator) displace(connID, keepPlayerID string) {
	s, ok := c.sessions.Lookup(connID)
	if !ok || s.Player.ID == keepPlayerID {
		return
	}
	if s.LobbyID != "" {
		c.out.Unsubscribe(connID, s.LobbyID)
	}
	c.log.WithFields(logrus.Fields{"player": s.Player.ID, "conn": connID}).Info("connection switched identity")
	c.Disconnect(connID)
}

// Disconnect handles a closed transport. The player stays in their lobby and
// game; if they have not reconnected when DisconnectGrace runs out they leave
// for good. A zero grace keeps them until they leave explicitly.
func (c *Coordinator) Disconnect(connID string) {
	s, ok := c.sessions.Disconnect(connID)
	if !ok {
		return
	}
	playerID := s.Player.ID
	c.log.WithFields(logrus.Fields{"player": playerID, "conn": connID, "lobby": s.LobbyID}).Info("player disconnected")
	if c.cfg.DisconnectGrace <= 0 {
		return
	}

	c.reapMu.Lock()
	defer c.reapMu.Unlock()
	if old, ok := c.reapers[playerID]; ok {
		old.timer.Stop()
	}
	r := &reaper{}
	c.reapers[playerID] = r
	r.timer = c.clock.AfterFunc(c.cfg.DisconnectGrace, func() { c.reap(playerID, r) })
}

// reaper is the pending grace timer of one disconnected player.
type reaper struct {
	timer scheduler.Timer
}

func (c *Coordinator) cancelReap(playerID string) {
	c.reapMu.Lock()
	defer c.reapMu.Unlock()
	if r, ok := c.reapers[playerID]; ok {
		r.timer.Stop()
		delete(c.reapers, playerID)
	}
}

// reap removes a player whose grace period ran out. r must still be the
// player's current reaper.
func (c *Coordinator) reap(playerID string, r *reaper) {
	c.reapMu.Lock()
	if c.reapers[playerID] != r {
		c.reapMu.Unlock()
		return
	}
	delete(c.reapers, playerID)
	c.reapMu.Unlock()

	if _, connected := c.sessions.ConnectionFor(playerID); connected {
		return
	}
	if s, ok := c.sessions.Get(playerID); ok && s.LobbyID != "" {
		c.leaveLobby(playerID, "")
	}
	c.sessions.Forget(playerID)
	c.log.WithField("player", playerID).Info("disconnected player reaped")
}
