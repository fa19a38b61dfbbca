package location

import "testing"

func TestMatchesAliases(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Hồ Chí Minh", "TP.HCM", true},
		{"Sài Gòn", "Ho Chi Minh", true},
		{"TPHCM", "Thanh pho Ho Chi Minh", true},
		{"Hà Nội", "Hanoi", true},
		{"Hà Nội", "Đà Nẵng", false},
		{"Da Nang", "Can Tho", false},
		{"Vũng Tàu", "Ba Ria - Vung Tau", true},
		{"Hue", "Thừa Thiên Huế", true},
	}
	for _, c := range cases {
		if got := Matches(c.a, c.b); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestMatchesIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Hồ Chí Minh", "TP.HCM"},
		{"Hà Nội", "Đà Nẵng"},
		{"Quy Nhon City", "Quy Nhon"},
		{"", "Hà Nội"},
		{"somewhere", "somewhere else entirely"},
	}
	for _, p := range pairs {
		if Matches(p[0], p[1]) != Matches(p[1], p[0]) {
			t.Errorf("Matches(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestMatchesExactAfterNormalize(t *testing.T) {
	if !Matches("  Quy   Nhon ", "quy nhon") {
		t.Error("whitespace collapse + lowercase should make these equal")
	}
	if !Matches("Pleiku!", "pleiku") {
		t.Error("punctuation should be stripped before comparing")
	}
}

func TestMatchesBlankInput(t *testing.T) {
	if Matches("", "") {
		t.Error("two empty strings must not match")
	}
	if Matches("Hà Nội", "") {
		t.Error("empty right side must not match")
	}
	if Matches("   ", "Hà Nội") {
		t.Error("whitespace-only left side must not match")
	}
}

func TestFuzzyFallbackLengthGuard(t *testing.T) {
	// Untabulated names: substring with a small length difference matches.
	if !Matches("Quy Nhon", "Quy Nhon City") {
		t.Error("substring within 5 chars should match")
	}
	// Same substring but the difference exceeds the guard.
	if Matches("Quy Nhon", "Quy Nhon Industrial Zone A") {
		t.Error("length difference beyond 5 chars must not match")
	}
}

func TestTabulatedShortCodeDoesNotFuzzyMatch(t *testing.T) {
	// "CT" belongs to Cần Thơ's alias set, so it never falls through to the
	// substring check against unrelated strings that merely contain "ct".
	if Matches("CT", "contract") {
		t.Error("tabulated code must not substring-match unrelated text")
	}
}

func TestProvincesSharingShortCodeStayDistinct(t *testing.T) {
	// Both alias tables carry "QN"; the full names must still compare by set
	// identity, never by overlapping members.
	if Matches("Quảng Ninh", "Quảng Nam") {
		t.Error("distinct provinces sharing a code must not match")
	}
	// The contested code itself resolves to whichever province registered
	// first and matches only that one.
	if !Matches("QN", "Quảng Ninh") {
		t.Error("QN should resolve to its first registrant")
	}
	if Matches("QN", "Quảng Nam") {
		t.Error("QN must not also match the later registrant")
	}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"TP.HCM", "Hồ Chí Minh"},
		{"hanoi", "Hà Nội"},
		{"Nha Trang", "Khánh Hòa"},
		{"  Quy Nhon  ", "Quy Nhon"},
	}
	for _, c := range cases {
		if got := Canonicalize(c.in); got != c.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
