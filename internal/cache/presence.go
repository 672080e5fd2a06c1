package cache

import (
	"fmt"
	"strings"
	"time"
)

// PresenceTTL bounds how long a presence entry survives without a heartbeat.
// The hub's ping loop refreshes it, so an abrupt network loss evicts the
// entry instead of leaking it until an explicit disconnect.
const PresenceTTL = 90 * time.Second

// PresenceDirectory is the ephemeral user -> connection mapping plus each
// connection's last reported viewed path. Lost on restart; always best-effort.
//
// Key schema:
//
//	user:{id}             connection id
//	connection:{id}:path  viewed path, query string stripped
type PresenceDirectory struct {
	redis *RedisCache
}

func NewPresenceDirectory(redis *RedisCache) *PresenceDirectory {
	return &PresenceDirectory{redis: redis}
}

func userKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func pathKey(connID string) string {
	return fmt.Sprintf("connection:%s:path", connID)
}

func (p *PresenceDirectory) Connect(userID uint, connID string) error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.Set(userKey(userID), []byte(connID), PresenceTTL)
}

func (p *PresenceDirectory) Disconnect(userID uint, connID string) error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.Delete(userKey(userID), pathKey(connID))
}

// Refresh extends both entries' TTL; driven by the hub heartbeat.
func (p *PresenceDirectory) Refresh(userID uint, connID string) error {
	if p == nil || p.redis == nil {
		return nil
	}
	if err := p.redis.Expire(userKey(userID), PresenceTTL); err != nil {
		return err
	}
	return p.redis.Expire(pathKey(connID), PresenceTTL)
}

// ConnectionID resolves a user's active connection, if any.
func (p *PresenceDirectory) ConnectionID(userID uint) (string, bool) {
	if p == nil || p.redis == nil {
		return "", false
	}
	val, err := p.redis.Get(userKey(userID))
	if err != nil || val == nil {
		return "", false
	}
	return string(val), true
}

// SetViewedPath records the path a connection's client reports it is looking
// at. The query string is stripped before storing.
func (p *PresenceDirectory) SetViewedPath(connID, path string) error {
	if p == nil || p.redis == nil {
		return nil
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return p.redis.Set(pathKey(connID), []byte(path), PresenceTTL)
}

// ViewedPath returns the last path reported for a connection.
func (p *PresenceDirectory) ViewedPath(connID string) (string, bool) {
	if p == nil || p.redis == nil {
		return "", false
	}
	val, err := p.redis.Get(pathKey(connID))
	if err != nil || val == nil {
		return "", false
	}
	return string(val), true
}
