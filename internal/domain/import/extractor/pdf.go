package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// pdfDocument adapts a ledongthuc/pdf reader. The library panics on some
// malformed input, so every call into it recovers.
type pdfDocument struct {
	r *pdf.Reader
}

func openPDF(data []byte) (doc document, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), pdfMagic) {
		return nil, errors.New("not a PDF document")
	}

	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfDocument{r: r}, nil
}

func (d *pdfDocument) NumPage() (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return d.r.NumPage()
}

func (d *pdfDocument) PageFragments(num int) (frags []Fragment, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			frags, err = nil, fmt.Errorf("malformed page content: %v", rec)
		}
	}()

	p := d.r.Page(num)
	if p.V.IsNull() {
		return nil, errors.New("page not found")
	}

	texts := p.Content().Text
	frags = make([]Fragment, 0, len(texts))
	for _, t := range texts {
		frags = append(frags, Fragment{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return frags, nil
}

func (d *pdfDocument) Metadata() (meta *Metadata) {
	defer func() {
		if recover() != nil {
			meta = nil
		}
	}()

	info := d.r.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	m := &Metadata{
		Title:    strings.TrimSpace(info.Key("Title").Text()),
		Author:   strings.TrimSpace(info.Key("Author").Text()),
		Creator:  strings.TrimSpace(info.Key("Creator").Text()),
		Producer: strings.TrimSpace(info.Key("Producer").Text()),
	}
	if t, ok := parsePDFDate(info.Key("CreationDate").Text()); ok {
		m.CreationDate = &t
	}
	if *m == (Metadata{}) {
		return nil
	}
	return m
}

// parsePDFDate reads the "D:YYYYMMDDHHmmSS" form, ignoring the zone suffix.
func parsePDFDate(raw string) (time.Time, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "D:")
	digits := 0
	for digits < len(s) && digits < 14 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits < 8 {
		return time.Time{}, false
	}
	layout := "20060102150405"[:digits]
	if digits%2 != 0 {
		digits--
		layout = layout[:digits]
	}
	t, err := time.Parse(layout, s[:digits])
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
