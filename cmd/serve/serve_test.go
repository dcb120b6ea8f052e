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
package serve

import (
	"testing"

	"github.com/spf13/viper"

	"bungae.dev/bungae/internal/cliexit"
)

func resetViper(t *testing.T) {
	t.Helper()
	v := viper.GetViper()
	for _, key := range v.AllKeys() {
		v.Set(key, "")
	}
}

func TestRunRequiresEntryFlag(t *testing.T) {
	resetViper(t)
	viper.Set("root", t.TempDir())

	err := run(Cmd, nil)
	if err == nil {
		t.Fatal("expected an error when --entry is missing")
	}
	if cliexit.Code(err) != 2 {
		t.Errorf("expected a usage exit code (2) for a missing --entry, got %d", cliexit.Code(err))
	}
}
