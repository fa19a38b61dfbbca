// Package location compares free-text Vietnamese location strings. An alias
// table of administrative regions is the primary mechanism; a bounded
// substring check is the fallback for names the table does not know.
package location

import "strings"

type aliasSet struct {
	canonical string
	members   map[string]bool
}

// index maps every normalized alias to its region set. Built once at init,
// read-only afterwards.
var index = map[string]*aliasSet{}

func register(canonical string, aliases ...string) {
	set := &aliasSet{
		canonical: canonical,
		members:   map[string]bool{normalize(canonical): true},
	}
	for _, a := range aliases {
		set.members[normalize(a)] = true
	}
	for m := range set.members {
		// First registration wins so ambiguous short codes stay deterministic.
		if _, ok := index[m]; !ok {
			index[m] = set
		}
	}
}

func init() {
	register("Hà Nội", "Ha Noi", "Hanoi", "Thủ đô Hà Nội", "Thu do Ha Noi")
	register("Hồ Chí Minh", "Ho Chi Minh", "TP.HCM", "TP HCM", "Sài Gòn", "Sai Gon",
		"Thành phố Hồ Chí Minh", "Thanh pho Ho Chi Minh", "HCM", "TPHCM")
	register("Hải Phòng", "Hai Phong", "HP")
	register("Đà Nẵng", "Da Nang", "DN")
	register("Cần Thơ", "Can Tho", "CT")
	register("Bà Rịa - Vũng Tàu", "Ba Ria - Vung Tau", "Vũng Tàu", "Vung Tau",
		"BR-VT", "BRVT", "Bà Rịa Vũng Tàu", "Ba Ria Vung Tau")
	register("Bình Dương", "Binh Duong", "BD")
	register("Đồng Nai", "Dong Nai", "DN2")
	register("Khánh Hòa", "Khanh Hoa", "Nha Trang", "KH")
	register("Lâm Đồng", "Lam Dong", "Đà Lạt", "Da Lat", "LD")
	register("Quảng Ninh", "Quang Ninh", "Hạ Long", "Ha Long", "QN")
	register("Thừa Thiên Huế", "Thua Thien Hue", "Huế", "Hue", "HUE")
	register("Nghệ An", "Nghe An", "Vinh", "NA")
	register("An Giang", "AG")
	register("Bạc Liêu", "Bac Lieu", "BL")
	register("Bắc Kạn", "Bac Kan", "BK")
	register("Bắc Giang", "Bac Giang", "BG")
	register("Bắc Ninh", "Bac Ninh", "BN")
	register("Bến Tre", "Ben Tre", "BT")
	register("Bình Định", "Binh Dinh", "BD2")
	register("Bình Phước", "Binh Phuoc", "BP")
	register("Bình Thuận", "Binh Thuan", "BT2")
	register("Cà Mau", "Ca Mau", "CM")
	register("Cao Bằng", "Cao Bang", "CB")
	register("Đắk Lắk", "Dak Lak", "Đắc Lắc", "DL")
	register("Đắk Nông", "Dak Nong", "Đắc Nông", "DG")
	register("Điện Biên", "Dien Bien", "DB")
	register("Đồng Tháp", "Dong Thap", "DT")
	register("Gia Lai", "GL")
	register("Hà Giang", "Ha Giang", "HG")
	register("Hà Nam", "Ha Nam", "HN2")
	register("Hà Tĩnh", "Ha Tinh", "HT")
	register("Hải Dương", "Hai Duong", "HD")
	register("Hòa Bình", "Hoa Binh", "HB")
	register("Hưng Yên", "Hung Yen", "HY")
	register("Kiên Giang", "Kien Giang", "KG")
	register("Lào Cai", "Lao Cai", "LC")
	register("Lạng Sơn", "Lang Son", "LS")
	register("Long An", "LA")
	register("Nam Định", "Nam Dinh", "ND")
	register("Ninh Bình", "Ninh Binh", "NB")
	register("Ninh Thuận", "Ninh Thuan", "NT")
	register("Phú Thọ", "Phu Tho", "PT")
	register("Phú Yên", "Phu Yen", "PY")
	register("Quảng Bình", "Quang Binh", "QB")
	register("Quảng Nam", "Quang Nam", "QN")
	register("Quảng Ngãi", "Quang Ngai", "QG")
	register("Quảng Trị", "Quang Tri", "QT")
	register("Sóc Trăng", "Soc Trang", "ST")
	register("Sơn La", "Son La", "SL")
	register("Tây Ninh", "Tay Ninh", "TN")
	register("Thái Bình", "Thai Binh", "TB")
	register("Thái Nguyên", "Thai Nguyen", "TY")
	register("Thanh Hóa", "Thanh Hoa", "TH")
	register("Tiền Giang", "Tien Giang", "TG")
	register("Trà Vinh", "Tra Vinh", "TV")
	register("Tuyên Quang", "Tuyen Quang", "TQ")
	register("Vĩnh Long", "Vinh Long", "VL")
	register("Vĩnh Phúc", "Vinh Phuc", "VP")
	register("Yên Bái", "Yen Bai", "YB")
}

// normalize lowercases, collapses whitespace runs, trims and strips every
// character outside [a-z0-9 ]. Diacritics are removed entirely, not
// transliterated, so the alias table carries the load for accented names.
func normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// maxFuzzyLenDiff bounds the substring fallback so short codes cannot match
// long unrelated strings.
const maxFuzzyLenDiff = 5

// Matches reports whether two free-text locations refer to the same region.
// It never fails; blank input on either side is a non-match.
func Matches(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	sa, sb := index[na], index[nb]
	if sa != nil && sb != nil {
		// Set identity, not member overlap: a short code shared by two
		// provinces must not glue them together.
		return sa == sb
	}
	if sa != nil {
		return sa.members[nb]
	}
	if sb != nil {
		return sb.members[na]
	}

	// Fuzzy fallback: containment with a bounded length difference, e.g.
	// "tphcm" inside "tp hcm something" but not "ct" inside "architecture".
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		diff := len(na) - len(nb)
		if diff < 0 {
			diff = -diff
		}
		return diff <= maxFuzzyLenDiff
	}
	return false
}

// Canonicalize returns the table's preferred spelling for a known location,
// or the trimmed input when the table has no entry. Display only; Matches is
// the authority for equivalence.
func Canonicalize(s string) string {
	if set, ok := index[normalize(s)]; ok {
		return set.canonical
	}
	return strings.TrimSpace(s)
}
