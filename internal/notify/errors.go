package notify

import "errors"

var (
	// ErrDispatch wraps a failed notification delivery. It is logged, never
	// returned to the notifying code.
	ErrDispatch = errors.New("notify: dispatch failed")

	// ErrQueueFull is logged when a notification is dropped because the
	// queue is at capacity.
	ErrQueueFull = errors.New("notify: queue full")
)
