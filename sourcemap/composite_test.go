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
package sourcemap

import "testing"

func TestComposeOffsetsAndIndexesSources(t *testing.T) {
	modules := []ModuleMap{
		{
			SourcePath:  "Foo.js",
			SourceText:  "module.exports = {}",
			StartLine:   0,
			RawMappings: []Mapping{{GenLine: 0, GenCol: 0, HasSource: true, SrcLine: 0, SrcCol: 0}},
		},
		{
			SourcePath:   "Bar.js",
			SourceText:   "module.exports = {}",
			StartLine:    3,
			IgnoreListed: true,
			RawMappings:  []Mapping{{GenLine: 0, GenCol: 0, HasSource: true, SrcLine: 0, SrcCol: 0}},
		},
	}

	file := Compose(modules)

	if len(file.Sources) != 2 || file.Sources[0] != "Foo.js" || file.Sources[1] != "Bar.js" {
		t.Errorf("Sources = %v", file.Sources)
	}
	if len(file.XGoogleIgnoreList) != 1 || file.XGoogleIgnoreList[0] != 1 {
		t.Errorf("XGoogleIgnoreList = %v, want [1]", file.XGoogleIgnoreList)
	}

	decoded, err := DecodeMappings(file.Mappings)
	if err != nil {
		t.Fatalf("DecodeMappings failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d decoded mappings, want 2", len(decoded))
	}
	if decoded[0].GenLine != 0 || decoded[1].GenLine != 3 {
		t.Errorf("carry-over line offsets wrong: %+v", decoded)
	}
	if decoded[1].SrcIndex != 1 {
		t.Errorf("second module's SrcIndex = %d, want 1", decoded[1].SrcIndex)
	}
}
