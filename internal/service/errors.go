package service

import "errors"

var (
	ErrEnvironmentNotFound = errors.New("environment not found")
	ErrStackNotFound       = errors.New("stack not found")
	ErrSynthNotFound       = errors.New("synth not found")
)
