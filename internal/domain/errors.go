package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicatePhone   = errors.New("phone number is already registered")
	ErrInvalidPhone     = errors.New("invalid phone number")
	ErrUnknownEvent     = errors.New("unhandled billing event")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
