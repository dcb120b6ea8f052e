/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package bungerr is the error taxonomy every component boundary in this
// module returns through: a small Kind plus the usual wrapped cause, so
// callers can branch with errors.As instead of string-matching messages.
package bungerr

import "fmt"

// Kind classifies an Error by how the engine is expected to react to it.
type Kind int

const (
	// ConfigInvalid is fatal: startup aborts naming the offending field.
	ConfigInvalid Kind = iota
	// EntryMissing is fatal per build; server sessions answer 500 instead.
	EntryMissing
	// Unresolved is recoverable: the builder warns and drops the slot in dev.
	Unresolved
	// TransformFailure propagates, wrapped with the offending path.
	TransformFailure
	// CacheCorrupt is recoverable: treated as a cache miss.
	CacheCorrupt
	// AssetDecodeFailure is recoverable: dimensions default to zero.
	AssetDecodeFailure
	// MapGenerationFailure propagates in dev; absence of a map in
	// production builds is not an error.
	MapGenerationFailure
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case EntryMissing:
		return "EntryMissing"
	case Unresolved:
		return "Unresolved"
	case TransformFailure:
		return "TransformFailure"
	case CacheCorrupt:
		return "CacheCorrupt"
	case AssetDecodeFailure:
		return "AssetDecodeFailure"
	case MapGenerationFailure:
		return "MapGenerationFailure"
	default:
		return "Unknown"
	}
}

// Recoverable reports whether this kind of error is handled in place rather
// than aborting the build or request that triggered it.
func (k Kind) Recoverable() bool {
	switch k {
	case Unresolved, CacheCorrupt, AssetDecodeFailure:
		return true
	default:
		return false
	}
}

// Error wraps a Kind with the detail relevant to diagnosing it: the path or
// specifier involved, and the underlying cause if any.
type Error struct {
	Kind    Kind
	Subject string // path, specifier, or config field name
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for the given kind and subject, wrapping cause if set.
func New(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}
