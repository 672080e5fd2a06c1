package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/punchking466/workchat-backend-v2/internal/models"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, username string) *models.User {
	if id == 0 {
		id = 1
	}
	if username == "" {
		username = "testuser"
	}

	return &models.User{
		ID:                id,
		Username:          username,
		Grade:             "Staff",
		AllowNotification: true,
		AllowSound:        true,
		AllowVibration:    true,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

// CreateTestRoom creates a test room with default values
func (h *TestHelper) CreateTestRoom(id uint, kind models.RoomKind, name string) *models.Room {
	if id == 0 {
		id = 1
	}
	return &models.Room{
		ID:          id,
		Kind:        kind,
		Name:        name,
		AllowLeave:  true,
		AllowDelete: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// CreateTestMembership creates an active membership row
func (h *TestHelper) CreateTestMembership(roomID, userID uint, isAdmin bool) *models.Membership {
	return &models.Membership{
		ID:                roomID*100 + userID,
		RoomID:            roomID,
		UserID:            userID,
		IsAdmin:           isAdmin,
		AllowNotification: true,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

// CreateTestMessage creates a test message with default values
func (h *TestHelper) CreateTestMessage(id, roomID, senderID uint, order int, body string) *models.Message {
	if body == "" {
		body = "Test message"
	}
	return &models.Message{
		ID:        id,
		RoomID:    roomID,
		SenderID:  senderID,
		Kind:      models.TextMessage,
		Body:      body,
		Order:     order,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}
