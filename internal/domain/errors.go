package domain

import "errors"

var (
	ErrInvalidCallbackToken = errors.New("invalid callback token")
	ErrNoTarget             = errors.New("no target host or module")
	ErrInvalidCallbackKey   = errors.New("invalid callback key")
)

// Application error types returned by workflows
const (
	ErrTypeInvalidIP       = "InvalidIP"
	ErrTypeNoTarget        = "NoTarget"
	ErrTypeJobRejected     = "JobRejected"
	ErrTypeJobFailed       = "JobFailed"
	ErrTypeCallbackTimeout = "CallbackTimeout"
)
