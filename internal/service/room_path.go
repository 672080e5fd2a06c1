package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/punchking466/workchat-backend-v2/internal/models"
)

var (
	groupPathPattern   = regexp.MustCompile(`^/group-chat/(\d+)$`)
	privatePathPattern = regexp.MustCompile(`^/private-chat/(\d+)$`)
)

// ParseRoomPath maps a client-reported view path onto the room it shows.
// Query strings are ignored. Returns ok=false for any non-room path.
func ParseRoomPath(path string) (models.RoomKind, uint, bool) {
	if path == "" {
		return "", 0, false
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if m := groupPathPattern.FindStringSubmatch(path); m != nil {
		id, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return "", 0, false
		}
		return models.GroupRoom, uint(id), true
	}
	if m := privatePathPattern.FindStringSubmatch(path); m != nil {
		id, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return "", 0, false
		}
		return models.PrivateRoom, uint(id), true
	}
	return "", 0, false
}
