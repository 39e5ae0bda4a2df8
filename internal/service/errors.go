package service

import "errors"

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrAlreadyProcessed = errors.New("match already processed")
	ErrSameResult       = errors.New("match already has this result")
	ErrMalformedInput   = errors.New("malformed input")
)
