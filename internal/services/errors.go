// Package services holds the classify-then-dispatch pipeline of the expense
// assistant. This file centralizes the service-level error values so they
// can be returned consistently and checked by callers with errors.Is.
//
// Translation into user-facing text or HTTP status codes happens at the
// adapter layer (Assistant, handlers, Telegram bot).
package services

import "errors"

var (
	// ErrEmptyPrompt is returned when an inbound message is blank after trimming.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when an inbound message exceeds the configured
	// rune limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrInvalidDate is returned when an explicit date does not exist in the
	// calendar or does not match the expected layout.
	ErrInvalidDate = errors.New("invalid date provided")

	// ErrExpenseNotFound is returned by owner-scoped lookups when the expense
	// does not exist or belongs to another user.
	ErrExpenseNotFound = errors.New("expense not found")
)
