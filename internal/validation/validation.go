package validation

import (
	"os"
	"strconv"
	"strings"
)

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func MaxRoomNameLength() int {
	maxStr := os.Getenv("MAX_ROOM_NAME_LENGTH")
	if maxStr == "" {
		return 80
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 80
	}
	return max
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// ValidateRoomName checks a group room name after trimming.
func ValidateRoomName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= MaxRoomNameLength()
}
