package shim

import "github.com/ygrebnov/shim/errors"

// Sentinel errors, re-exported from package errors. Use errors.Is to match.
var (
	ErrInvalidContract      = errors.ErrInvalidContract
	ErrNilTarget            = errors.ErrNilTarget
	ErrUnresolvedMember     = errors.ErrUnresolvedMember
	ErrAmbiguousMember      = errors.ErrAmbiguousMember
	ErrProxyOverrideMissing = errors.ErrProxyOverrideMissing
	ErrProxyAddExisting     = errors.ErrProxyAddExisting
	ErrInvalidProxy         = errors.ErrInvalidProxy
	ErrNotAdaptable         = errors.ErrNotAdaptable
	ErrNotImplemented       = errors.ErrNotImplemented
	ErrNotAdapter           = errors.ErrNotAdapter
	ErrInvalidMember        = errors.ErrInvalidMember
	ErrUnknownMember        = errors.ErrUnknownMember
	ErrUnresolvableRef      = errors.ErrUnresolvableRef
	ErrAlreadyResolved      = errors.ErrAlreadyResolved
	ErrNoShell              = errors.ErrNoShell
	ErrInvalidShell         = errors.ErrInvalidShell
)
