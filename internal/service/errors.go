package service

import "errors"

// Action-rejection taxonomy surfaced to handlers, which map each kind onto an
// HTTP status. None of these are retried automatically.
var (
	// ErrNotAMember: the room exists but the caller has no active membership.
	ErrNotAMember = errors.New("not a member of this room")
	// ErrNotAdmin: an admin-gated action was attempted by a non-admin member.
	ErrNotAdmin = errors.New("room admin required")
	// ErrRoomNotFound: the referenced room id does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrUserNotFound: a referenced member id does not resolve to a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidTransition: the action is not valid from the caller's state,
	// e.g. reading a room the caller was never part of.
	ErrInvalidTransition = errors.New("invalid room transition")
	// ErrCannotKickSelf: self-removal must go through the leave path.
	ErrCannotKickSelf = errors.New("cannot kick yourself")
)
