package domain

import "errors"

var (
	ErrChannelAlreadyRegistered = errors.New("channel already registered")
	ErrChannelNotRegistered     = errors.New("channel not registered")
	ErrCreatorNotFound          = errors.New("creator not found")
)
