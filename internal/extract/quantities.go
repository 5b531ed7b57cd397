// Package extract pulls structured fields out of procedure text: power and
// energy quantities, areas, decision dates, developer companies and parcel
// locations. All extractors work on raw (not normalized) text so values keep
// their original casing and spelling in evidence.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Quantity is a power or energy value normalized to MW / MWh.
type Quantity struct {
	Unit  string // "MW" or "MWh"
	Value float64
}

var (
	mwPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:mwh|megawattstunden|mw|megawatt)`)
	kwPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:kwh|kilowattstunden|kw|kilowatt)`)
)

// Quantities extracts all power/energy values, converting kW→MW and
// kWh→MWh. German decimal commas are accepted.
func Quantities(text string) []Quantity {
	var out []Quantity
	for _, m := range mwPattern.FindAllStringSubmatch(text, -1) {
		v, err := parseGermanFloat(m[1])
		if err != nil {
			continue
		}
		out = append(out, Quantity{Unit: unitOf(m[0]), Value: v})
	}
	for _, m := range kwPattern.FindAllStringSubmatch(text, -1) {
		v, err := parseGermanFloat(m[1])
		if err != nil {
			continue
		}
		out = append(out, Quantity{Unit: unitOf(m[0]), Value: v / 1000.0})
	}
	return out
}

// unitOf decides MW vs MWh from the matched unit text.
func unitOf(match string) string {
	lower := strings.ToLower(match)
	if strings.Contains(lower, "h") || strings.Contains(lower, "stunden") {
		return "MWh"
	}
	return "MW"
}

// CapacityMW returns the largest MW value in the text, the best guess for the
// project's power rating. Zero result means not found.
func CapacityMW(text string) (float64, bool) {
	return maxOfUnit(Quantities(text), "MW")
}

// CapacityMWh returns the largest MWh value, the best guess for storage
// capacity.
func CapacityMWh(text string) (float64, bool) {
	return maxOfUnit(Quantities(text), "MWh")
}

func maxOfUnit(qs []Quantity, unit string) (float64, bool) {
	best, found := 0.0, false
	for _, q := range qs {
		if q.Unit == unit && (!found || q.Value > best) {
			best, found = q.Value, true
		}
	}
	return best, found
}

func parseGermanFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
