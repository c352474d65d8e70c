package domain

import "errors"

var (
	// ErrSessionNotFound is returned for absent or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRequest marks caller input the workflow cannot run with.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoShoppingList is returned by checkout before any list was built.
	ErrNoShoppingList = errors.New("no shopping list in session")
	// ErrNoHistory is returned when feedback targets a user without history.
	ErrNoHistory = errors.New("no meal history")
	// ErrSnapshotNotFound is returned by snapshot backends with nothing stored yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
