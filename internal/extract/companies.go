package extract

import (
	"regexp"
	"strings"
)

var companyPattern = regexp.MustCompile(
	`[A-ZÄÖÜ][A-Za-zÄÖÜäöüß0-9\s&.-]{2,60}?(?:GmbH & Co\. KG|GmbH|AG|UG|KG)\b`)

var legalSuffixes = []string{"gmbh & co. kg", "gmbh", "ag", "ug", "kg"}

// Companies returns company mentions carrying a German legal-form suffix.
func Companies(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range companyPattern.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// DeveloperCompany picks the first company mention, the usual position of the
// applicant in agenda titles ("Antrag der X GmbH auf ...").
func DeveloperCompany(text string) (string, bool) {
	companies := Companies(text)
	if len(companies) == 0 {
		return "", false
	}
	return companies[0], true
}

// NormalizeCompany strips the legal suffix, lowercases and removes
// punctuation. Used as the resolver's developer_norm key.
func NormalizeCompany(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range legalSuffixes {
		lower = strings.TrimSuffix(strings.TrimSpace(lower), suffix)
	}
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ',
			r == 'ä', r == 'ö', r == 'ü', r == 'ß':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
