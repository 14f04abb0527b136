// File: internal/services/errors.go
package services

import "errors"

var (
	// ErrUserNotFound reports that no user matches the target email of a
	// private chat request.
	ErrUserNotFound = errors.New("user not found")
	// ErrSelfChat reports an attempt to open a private chat with oneself.
	ErrSelfChat = errors.New("self chat not allowed")
	// ErrEmptyMessage reports a message with neither text nor a file.
	ErrEmptyMessage = errors.New("message has no text and no file")
	// ErrMessageTooLong reports text over the 10,000 character limit.
	ErrMessageTooLong = errors.New("message text too long")
	// ErrChatAccessDenied reports a sender or joiner without membership in
	// a private chat.
	ErrChatAccessDenied = errors.New("no access to chat")
)
