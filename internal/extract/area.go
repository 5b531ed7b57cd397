package extract

import "regexp"

// Ordered largest-unit-first so km² is not half-matched as m².
var areaPatterns = []struct {
	re       *regexp.Regexp
	hectares float64
}{
	{regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:km²|km2|quadratkilometer)`), 100},
	{regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:ha\b|hektare?n?)`), 1},
	{regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:m²|m2\b|qm\b|quadratmeter)`), 0.0001},
}

// Areas extracts all area mentions, converted to hectares.
func Areas(text string) []float64 {
	var out []float64
	for _, p := range areaPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			v, err := parseGermanFloat(m[1])
			if err != nil {
				continue
			}
			out = append(out, v*p.hectares)
		}
	}
	return out
}

// LargestArea returns the biggest area in hectares, the best guess for the
// project site.
func LargestArea(text string) (float64, bool) {
	best, found := 0.0, false
	for _, a := range Areas(text) {
		if !found || a > best {
			best, found = a, true
		}
	}
	return best, found
}
