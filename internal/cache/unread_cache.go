package cache

import (
	"fmt"
	"strconv"

	"github.com/punchking466/workchat-backend-v2/internal/models"
)

// UnreadAggregate is the cached per-user unread view: room id -> count plus
// the running total. Derived state only; always reconstructable from the
// message log and the membership ledger.
type UnreadAggregate struct {
	PerRoom map[uint]int `json:"per_room"`
	Total   int          `json:"total"`
}

// UnreadCache mirrors per-user unread counters in Redis so the room list and
// badge totals don't recompute from Postgres on every read. It may be stale
// or absent (reads as zero) between Warm calls; the durable store stays
// authoritative.
//
// Key schema:
//
//	user:{id}:{kind}:unread        hash room id -> count
//	user:{id}:{kind}:unread:total  integer
type UnreadCache struct {
	redis *RedisCache
}

func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func unreadHashKey(userID uint, kind models.RoomKind) string {
	return fmt.Sprintf("user:%d:%s:unread", userID, kind)
}

func unreadTotalKey(userID uint, kind models.RoomKind) string {
	return fmt.Sprintf("user:%d:%s:unread:total", userID, kind)
}

// Warm replaces the user's cached counters for one room kind with freshly
// recomputed values and returns the resulting aggregate.
func (uc *UnreadCache) Warm(userID uint, kind models.RoomKind, rows map[uint]int) (UnreadAggregate, error) {
	agg := UnreadAggregate{PerRoom: rows, Total: 0}
	if uc == nil || uc.redis == nil {
		for _, n := range rows {
			agg.Total += n
		}
		return agg, nil
	}

	keyH := unreadHashKey(userID, kind)
	keyT := unreadTotalKey(userID, kind)
	if err := uc.redis.Delete(keyH, keyT); err != nil {
		return UnreadAggregate{}, err
	}

	pipe := uc.redis.Pipeline()
	ctx := uc.redis.Context()
	for roomID, n := range rows {
		pipe.HSet(ctx, keyH, strconv.FormatUint(uint64(roomID), 10), n)
		agg.Total += n
	}
	pipe.Set(ctx, keyT, agg.Total, 0)
	if err := uc.redis.Exec(pipe); err != nil {
		return UnreadAggregate{}, err
	}
	return agg, nil
}

// IncrementOnSend bumps the per-room counter and the total by one for every
// receiver other than the sender. Both counters move in the same MULTI per
// user so the hash and the total never drift here.
func (uc *UnreadCache) IncrementOnSend(receiverIDs []uint, roomID, senderID uint, kind models.RoomKind) error {
	if uc == nil || uc.redis == nil || len(receiverIDs) == 0 {
		return nil
	}

	pipe := uc.redis.TxPipeline()
	ctx := uc.redis.Context()
	field := strconv.FormatUint(uint64(roomID), 10)
	for _, uid := range receiverIDs {
		if uid == senderID {
			continue
		}
		pipe.HIncrBy(ctx, unreadHashKey(uid, kind), field, 1)
		pipe.Incr(ctx, unreadTotalKey(uid, kind))
	}
	return uc.redis.Exec(pipe)
}

// Clear zeroes a room's counter and pulls the same amount off the total,
// returning the new total. A no-op when the room counter is already zero.
func (uc *UnreadCache) Clear(userID, roomID uint, kind models.RoomKind) (int, error) {
	if uc == nil || uc.redis == nil {
		return 0, nil
	}

	keyH := unreadHashKey(userID, kind)
	keyT := unreadTotalKey(userID, kind)
	field := strconv.FormatUint(uint64(roomID), 10)

	prev, err := uc.redis.HGetInt(keyH, field)
	if err != nil {
		return 0, err
	}
	if prev > 0 {
		pipe := uc.redis.TxPipeline()
		ctx := uc.redis.Context()
		pipe.HSet(ctx, keyH, field, 0)
		pipe.DecrBy(ctx, keyT, int64(prev))
		if err := uc.redis.Exec(pipe); err != nil {
			return 0, err
		}
	}
	return uc.redis.GetInt(keyT)
}

// Total reads the cached total for one room kind; missing keys read as zero.
func (uc *UnreadCache) Total(userID uint, kind models.RoomKind) (int, error) {
	if uc == nil || uc.redis == nil {
		return 0, nil
	}
	return uc.redis.GetInt(unreadTotalKey(userID, kind))
}
