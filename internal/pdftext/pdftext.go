// Package pdftext extracts text from PDF documents progressively: read the
// first few pages, stop early when nothing in them hints at a relevant
// procedure, read the rest when something does. Municipal PDFs are often
// hundred-page gazette issues where only the first pages decide relevance.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bessradar/bessradar/internal/keywords"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// Head pages read before the trigger decision.
const (
	headPagesFast = 3
	headPagesDeep = 5
)

// Result is the outcome of one extraction.
type Result struct {
	Text string
	// PageMap[i] is the byte offset in Text where page i+1 begins.
	PageMap      []int
	HasTextLayer bool
	PagesRead    int
	TotalPages   int
}

// triggerSets decide whether the tail of the document is worth reading.
var triggerSets = []*keywords.Set{
	keywords.BESSExplicit,
	keywords.PermitStrong,
	keywords.PlanningStrong,
}

// Extract reads the text layer progressively. A PDF without any recoverable
// text returns HasTextLayer=false and no error; the caller records OCR_NEEDED
// and moves on.
func Extract(pdfBytes []byte, mode models.CrawlMode) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return Result{}, fmt.Errorf("opening pdf: %w", err)
	}

	total := reader.NumPage()
	head := headPagesFast
	if mode == models.ModeDeep {
		head = headPagesDeep
	}

	var b strings.Builder
	var pageMap []int
	pagesRead := 0

	readPage := func(i int) {
		page := reader.Page(i)
		if page.V.IsNull() {
			return
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return
		}
		pageMap = append(pageMap, b.Len())
		b.WriteString(text)
		b.WriteString("\n")
		pagesRead++
	}

	stop := total
	if head < stop {
		stop = head
	}
	for i := 1; i <= stop; i++ {
		readPage(i)
	}

	if stop < total && hasTrigger(b.String()) {
		for i := stop + 1; i <= total; i++ {
			readPage(i)
		}
	}

	text := b.String()
	return Result{
		Text:         text,
		PageMap:      pageMap,
		HasTextLayer: strings.TrimSpace(text) != "",
		PagesRead:    pagesRead,
		TotalPages:   total,
	}, nil
}

func hasTrigger(text string) bool {
	norm := textnorm.Normalize(text).Text
	for _, set := range triggerSets {
		if set.Contains(norm) {
			return true
		}
	}
	return false
}
