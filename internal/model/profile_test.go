package model

import "testing"

func TestProfileIDKind(t *testing.T) {
	for _, tc := range []struct {
		id   ProfileID
		want ProfileKind
	}{
		{ProfileDefault, KindDefault},
		{ProfileRsProfile, KindRsProfile},
		{NamedProfile(7), KindNamed},
		{ProfileID(-2), KindInvalid},
	} {
		if got := tc.id.Kind(); got != tc.want {
			t.Errorf("ProfileID(%d).Kind() = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestNamedProfilePanicsOnReservedID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NamedProfile(0)
}

func TestParseProfileID(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    ProfileID
		wantErr bool
	}{
		{"0", ProfileDefault, false},
		{"-1", ProfileRsProfile, false},
		{"7", NamedProfile(7), false},
		{"12345678901", ProfileID(12345678901), false},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	} {
		got, err := ParseProfileID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseProfileID(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProfileID(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseProfileID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestStateOf(t *testing.T) {
	rs := RsProfile
	def := DefaultProfile
	for _, tc := range []struct {
		name     string
		profiles []*Profile
		want     MigrationState
	}{
		{"Empty", nil, StateMigrated},
		{"LegacyOnly", []*Profile{nil}, StateLegacy},
		{"HalfMigrated", []*Profile{nil, &rs}, StateMigrating},
		{"Migrated", []*Profile{&def, &rs}, StateMigrated},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := StateOf(tc.profiles); got != tc.want {
				t.Errorf("StateOf = %v, want %v", got, tc.want)
			}
		})
	}
}
