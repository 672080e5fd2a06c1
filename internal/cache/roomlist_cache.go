package cache

import (
	"fmt"
	"time"

	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/repository"
	"github.com/vmihailenco/msgpack/v5"
)

const RoomListTTL = 2 * time.Minute

// RoomListCache keeps each user's assembled room list (last message preview +
// unread) for a short window, invalidated whenever a refresh signal goes out.
type RoomListCache struct {
	redis *RedisCache
}

func NewRoomListCache(redis *RedisCache) *RoomListCache {
	return &RoomListCache{redis: redis}
}

func roomListKey(userID uint, kind models.RoomKind) string {
	return fmt.Sprintf("roomlist:%d:%s", userID, kind)
}

func (rc *RoomListCache) Get(userID uint, kind models.RoomKind) ([]repository.RoomListRow, bool) {
	if rc == nil || rc.redis == nil {
		return nil, false
	}
	data, err := rc.redis.Get(roomListKey(userID, kind))
	if err != nil || data == nil {
		return nil, false
	}

	var rows []repository.RoomListRow
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (rc *RoomListCache) Set(userID uint, kind models.RoomKind, rows []repository.RoomListRow) error {
	if rc == nil || rc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(rows)
	if err != nil {
		return err
	}
	return rc.redis.Set(roomListKey(userID, kind), data, RoomListTTL)
}

func (rc *RoomListCache) Invalidate(userID uint, kind models.RoomKind) error {
	if rc == nil || rc.redis == nil {
		return nil
	}
	return rc.redis.Delete(roomListKey(userID, kind))
}
