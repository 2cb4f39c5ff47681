package hunterservice

import "errors"

var (
	// ErrAlreadyRegistered means the steam id already has a hunter row.
	ErrAlreadyRegistered = errors.New("hunter already registered")
	// ErrNotRegistered means no hunter row exists for the identifier.
	ErrNotRegistered = errors.New("hunter not registered")
	// ErrProfileNotFound means Steam does not know the identifier.
	ErrProfileNotFound = errors.New("steam profile not found")
	// ErrProfilePrivate means the profile exists but its game details are
	// not publicly visible, so scores cannot be computed.
	ErrProfilePrivate = errors.New("steam profile is private")
	// ErrDiscordAlreadyLinked means the discord account is linked to another
	// hunter.
	ErrDiscordAlreadyLinked = errors.New("discord account already linked")
)
