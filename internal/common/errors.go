// Package common defines shared constants and sentinel errors used across
// cartsync layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound     = errors.New("not found")
	ErrListNotFound = errors.New("list not found")
	ErrItemNotFound = errors.New("item not found")

	// Store-level errors.
	ErrOwnerImmutable = errors.New("list owner cannot be removed")
	ErrEmptyListName  = errors.New("list name must not be empty")
	ErrEmptyItemName  = errors.New("item name must not be empty")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrStoreClosed    = errors.New("store is closed")

	// Auth errors.
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotRemembered  = errors.New("no remembered session")
	ErrAlreadyExists  = errors.New("already exists")
	ErrBackendOffline = errors.New("backend unavailable")
)
