package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseMemberID checks parsing never panics and valid IDs round-trip.
func FuzzParseMemberID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseMemberID(input)
		if err == nil {
			roundTrip, err2 := ParseMemberID(id.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed id value")
			}
			if id.IsNil() {
				t.Error("nil id was accepted")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseRank checks that only the five known ranks parse.
func FuzzParseRank(f *testing.F) {
	for _, r := range AllRanks() {
		f.Add(string(r))
	}
	f.Add("")
	f.Add("newbie_village")

	f.Fuzz(func(t *testing.T, input string) {
		r, err := ParseRank(input)
		if err == nil && !r.IsValid() {
			t.Errorf("ParseRank accepted %q as invalid rank %q", input, r)
		}
	})
}
