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

// Package cliexit maps a cobra command's returned error to one of the
// three exit codes §6's CLI contract defines: 0 success, 1 generic
// failure, 2 usage error.
package cliexit

import (
	"errors"

	"bungae.dev/bungae/internal/bungerr"
)

// UsageError marks a flag/argument validation failure, distinct from a
// build failing for a legitimate reason (a missing entry file, a failed
// transform).
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// NewUsage wraps err as a UsageError.
func NewUsage(err error) error {
	return &UsageError{Err: err}
}

// Code returns the process exit code for err: 0 if err is nil, 2 if err
// is (or wraps) a UsageError or a bungerr.ConfigInvalid, 1 otherwise.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return 2
	}
	var berr *bungerr.Error
	if errors.As(err, &berr) && berr.Kind == bungerr.ConfigInvalid {
		return 2
	}
	return 1
}
