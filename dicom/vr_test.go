// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import "testing"

func TestLookupVR(t *testing.T) {
	tests := []struct {
		name       string
		want       *VR
		longLength bool
	}{
		{"PN", PNVR, false},
		{"US", USVR, false},
		{"UV", UVVR, true},
		{"OW", OWVR, true},
		{"UT", UTVR, true},
		{"SQ", SQVR, true},
		{"AT", ATVR, false},
	}
	for _, tc := range tests {
		got, err := LookupVR(tc.name)
		if err != nil {
			t.Fatalf("LookupVR(%q) => %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("LookupVR(%q): got %v, want %v", tc.name, got, tc.want)
		}
		if got.LongLength() != tc.longLength {
			t.Fatalf("%v.LongLength(): got %v, want %v", got, got.LongLength(), tc.longLength)
		}
	}
}

func TestLookupVR_unknown(t *testing.T) {
	for _, name := range []string{"", "ZZ", "pn"} {
		if _, err := LookupVR(name); err == nil {
			t.Fatalf("LookupVR(%q): expected error", name)
		}
	}
}

func TestVR_String(t *testing.T) {
	var unknown *VR
	if got := unknown.String(); got != "??" {
		t.Fatalf("got %q, want %q", got, "??")
	}
	if got := DSVR.String(); got != "DS" {
		t.Fatalf("got %q, want %q", got, "DS")
	}
}
