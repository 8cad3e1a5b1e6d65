package domain

import "errors"

var (
	// ErrSessionInvalid is returned when a session token cannot be resolved to an identity.
	ErrSessionInvalid = errors.New("session token invalid or expired")
	// ErrPoolNotFound indicates the pool code does not exist.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrPoolUnavailable indicates the pool exists but is not published.
	ErrPoolUnavailable = errors.New("pool not available")
	// ErrNoSelection is returned when an identity queues without a selected pool.
	ErrNoSelection = errors.New("no pool selected")
	// ErrInMatch rejects selection changes while inside an active match.
	ErrInMatch = errors.New("identity is in an active match")
	// ErrMatchNotFound indicates a submission referenced a stale or foreign match.
	ErrMatchNotFound = errors.New("match not found")
	// ErrNoOpenRound rejects submissions when no round is currently open.
	ErrNoOpenRound = errors.New("no open round")
)
