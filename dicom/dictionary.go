// Copyright 2026 Google LLC
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

import (
	"fmt"
	"strconv"
	"strings"

	dicomtag "github.com/suyashkumar/dicom/pkg/tag"
)

// Tags referenced by the decoder itself.
const (
	FileMetaInformationGroupLengthTag DataElementTag = 0x00020000
	TransferSyntaxUIDTag              DataElementTag = 0x00020010
	SpecificCharacterSetTag           DataElementTag = 0x00080005
	StudyDateTag                      DataElementTag = 0x00080020
	PatientNameTag                    DataElementTag = 0x00100010
	PixelDataProviderURLTag           DataElementTag = 0x00287FE0
	EncapsulatedDocumentTag           DataElementTag = 0x00420011
	AudioSampleDataTag                DataElementTag = 0x5000200C
	CurveDataTag                      DataElementTag = 0x50003000
	WaveformDataTag                   DataElementTag = 0x54001010
	SpectroscopyDataTag               DataElementTag = 0x56000020
	OverlayDataTag                    DataElementTag = 0x60003000
	FloatPixelDataTag                 DataElementTag = 0x7FE00008
	DoubleFloatPixelDataTag           DataElementTag = 0x7FE00009
	PixelDataTag                      DataElementTag = 0x7FE00010
	ItemTag                           DataElementTag = 0xFFFEE000
	ItemDelimitationItemTag           DataElementTag = 0xFFFEE00D
	SequenceDelimitationItemTag       DataElementTag = 0xFFFEE0DD
)

// VM is the value multiplicity declared for a tag by the data dictionary
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.4
type VM struct {
	Min int
	// Max is only meaningful when Unbounded is false
	Max       int
	Unbounded bool
}

// ParseVM parses the dictionary notation of a value multiplicity, e.g. "1", "1-3", "2-2n", "1-n".
// Alternatives such as "1-n or 1" resolve to the first one.
func ParseVM(s string) (VM, error) {
	s = strings.SplitN(s, " or ", 2)[0]
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	min, err := strconv.Atoi(parts[0])
	if err != nil {
		return VM{}, fmt.Errorf("parsing minimum of vm %q: %v", s, err)
	}
	if len(parts) == 1 {
		return VM{Min: min, Max: min}, nil
	}
	if strings.HasSuffix(parts[1], "n") {
		return VM{Min: min, Unbounded: true}, nil
	}
	max, err := strconv.Atoi(parts[1])
	if err != nil {
		return VM{}, fmt.Errorf("parsing maximum of vm %q: %v", s, err)
	}
	if max < min {
		return VM{}, fmt.Errorf("vm %q has maximum below minimum", s)
	}
	return VM{Min: min, Max: max}, nil
}

// Multiple is true if the VM allows more than one value.
func (vm VM) Multiple() bool {
	return vm.Unbounded || vm.Max > 1
}

func (vm VM) String() string {
	switch {
	case vm.Unbounded:
		return fmt.Sprintf("%d-n", vm.Min)
	case vm.Min == vm.Max:
		return strconv.Itoa(vm.Min)
	default:
		return fmt.Sprintf("%d-%d", vm.Min, vm.Max)
	}
}

// DictionaryEntry describes a tag of the DICOM data dictionary
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_6
type DictionaryEntry struct {
	Tag     DataElementTag
	Keyword string
	VR      *VR
	VM      VM
}

// wildcardMasks handles the repeating groups of the data dictionary. Tags like (60xx,3000) are
// stored with the x's set to '0', so a tag matches an entry when (tag & mask) == entry tag.
var wildcardMasks = []uint32{0xFFFFFF00, 0xFFFFFF0F, 0xFFFF000F, 0xFFFF0000, 0xFF00FFFF}

// LookupTag returns the PS3.6 data dictionary entry for tag. Private tags, group lengths outside
// the file meta group and tags unknown to the dictionary are not found.
func LookupTag(tag DataElementTag) (DictionaryEntry, bool) {
	if tag.IsPrivate() || (tag.IsGroupLength() && tag.GroupNumber() != 0x0002) {
		return DictionaryEntry{}, false
	}
	if entry, ok := findEntry(tag); ok {
		return entry, true
	}
	for _, m := range wildcardMasks {
		base := DataElementTag(uint32(tag) & m)
		if !isRepeatingGroup(base) {
			continue
		}
		if entry, ok := findEntry(base); ok {
			entry.Tag = tag
			return entry, true
		}
	}
	return DictionaryEntry{}, false
}

// findEntry converts the registry entry of tag. When the standard allows several VRs for a tag
// (e.g. "US or SS", "OB or OW") the last one listed is used.
func findEntry(tag DataElementTag) (DictionaryEntry, bool) {
	info, err := dicomtag.Find(dicomtag.Tag{Group: tag.GroupNumber(), Element: tag.ElementNumber()})
	if err != nil || info.Name == "" {
		return DictionaryEntry{}, false
	}
	entry := DictionaryEntry{Tag: tag, Keyword: info.Name, VR: UNVR, VM: VM{Min: 1, Max: 1}}
	if n := len(info.VRs); n > 0 {
		if vr, err := LookupVR(info.VRs[n-1]); err == nil {
			entry.VR = vr
		}
	}
	if vm, err := ParseVM(info.VM); err == nil {
		entry.VM = vm
	}
	return entry, true
}

// isRepeatingGroup is true for the curve (50xx) and overlay (60xx) groups whose tags carry
// wildcards in the dictionary.
func isRepeatingGroup(tag DataElementTag) bool {
	g := tag.GroupNumber()
	return g == 0x5000 || g == 0x6000
}

// Keyword returns the dictionary keyword of the tag, or "" if the tag is not in the dictionary
func (t DataElementTag) Keyword() string {
	entry, _ := LookupTag(t)
	return entry.Keyword
}

// DictionaryVR returns the VR of the tag as defined by the data dictionary. This is how VRs are
// resolved in the implicit VR syntax.
func (t DataElementTag) DictionaryVR() *VR {
	if t.IsGroupLength() {
		return ULVR
	}
	// private creator elements (gggg,0010-00FF) where gggg is odd
	if t.IsPrivate() && t.ElementNumber() >= 0x0010 && t.ElementNumber() <= 0x00FF {
		return LOVR
	}
	if entry, ok := LookupTag(t); ok {
		return entry.VR
	}
	return UNVR
}
