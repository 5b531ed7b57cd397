package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePatterns = []*regexp.Regexp{
	// DD.MM.YYYY, with PDF-typical stray spaces after the dots.
	regexp.MustCompile(`(\d{1,2})\.\s*(\d{1,2})\.\s*(\d{4})`),
	// DD.MM.YY
	regexp.MustCompile(`(\d{1,2})\.\s*(\d{1,2})\.\s*(\d{2})\b`),
	// DD/MM/YYYY and DD-MM-YYYY
	regexp.MustCompile(`(\d{1,2})[/-]\s*(\d{1,2})[/-]\s*(\d{4})`),
}

// decisionKeywords mark a date as a board decision rather than an incidental
// mention.
var decisionKeywords = []string{
	"aufstellungsbeschluss",
	"satzungsbeschluss",
	"beschlossen am",
	"beschlussfassung",
	"beschluss vom",
	"beschlossen",
	"beschluss",
}

// DatedMention is a date found in text together with its position.
type DatedMention struct {
	Date time.Time
	Pos  int
}

// Dates extracts all German-format dates whose year falls in the procedure
// window 2020–2030. Two-digit years below 50 are read as 20xx.
func Dates(text string) []DatedMention {
	var out []DatedMention
	for _, p := range datePatterns {
		for _, idx := range p.FindAllStringSubmatchIndex(text, -1) {
			day, _ := strconv.Atoi(text[idx[2]:idx[3]])
			month, _ := strconv.Atoi(text[idx[4]:idx[5]])
			yearStr := text[idx[6]:idx[7]]
			year, _ := strconv.Atoi(yearStr)
			if len(yearStr) == 2 {
				if year < 50 {
					year += 2000
				} else {
					year += 1900
				}
			}
			if year < 2020 || year > 2030 {
				continue
			}
			if month < 1 || month > 12 || day < 1 || day > 31 {
				continue
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			// Reject rollovers like 31.02.
			if d.Day() != day || d.Month() != time.Month(month) {
				continue
			}
			out = append(out, DatedMention{Date: d, Pos: idx[0]})
		}
	}
	return out
}

// DecisionDate finds the date tied to a decision keyword: first date after
// the keyword within 200 chars ("Satzungsbeschluss erfolgte am 20.06.2024"),
// else the nearest one before it. With no keyword it falls back to the first
// date found.
func DecisionDate(text string) (time.Time, bool) {
	dates := Dates(text)
	if len(dates) == 0 {
		return time.Time{}, false
	}
	lower := strings.ToLower(text)
	for _, kw := range decisionKeywords {
		kwPos := strings.Index(lower, kw)
		if kwPos < 0 {
			continue
		}
		for _, d := range dates {
			if d.Pos >= kwPos && d.Pos-kwPos < 200 {
				return d.Date, true
			}
		}
		for _, d := range dates {
			if abs(d.Pos-kwPos) < 200 {
				return d.Date, true
			}
		}
	}
	return dates[0].Date, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
