package extractor

import (
	"bytes"
	"fmt"
	"strings"
)

// TestPDFInfo is the information dictionary written by BuildTestPDF.
type TestPDFInfo struct {
	Title        string
	Author       string
	CreationDate string // PDF date, e.g. "D:20240115093000Z"
}

// Layout of generated pages, in PDF user space units.
const (
	testFontSize   = 10
	testGlyphWidth = 600 // Courier, per 1000 units of font size
	testLeftMargin = 40
	testTopLine    = 800
	testLineGap    = 14
	testColumnGap  = 18
)

// BuildTestPDF writes a minimal text PDF with one page per element of pages.
// Each string is one printed line; tabs split it into columns placed a visible
// gap apart, the way statement tables are laid out. Only printable ASCII is
// supported.
func BuildTestPDF(info TestPDFInfo, pages ...[]string) []byte {
	var objects []string

	// 1 catalog, 2 page tree, 3 font, 4 info, then a page and content pair per page.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		testFont(),
		fmt.Sprintf("<< /Title (%s) /Author (%s) /CreationDate (%s) >>",
			escapePDF(info.Title), escapePDF(info.Author), escapePDF(info.CreationDate)),
	)

	for i, lines := range pages {
		stream := pageStream(lines)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func testFont() string {
	widths := make([]string, 126-32+1)
	for i := range widths {
		widths[i] = fmt.Sprint(testGlyphWidth)
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func pageStream(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		y := testTopLine - testLineGap*i
		x := testLeftMargin
		for _, col := range strings.Split(line, "\t") {
			if col == "" {
				continue
			}
			fmt.Fprintf(&b, "BT /F1 %d Tf %d %d Td (%s) Tj ET\n", testFontSize, x, y, escapePDF(col))
			x += len(col)*testGlyphWidth*testFontSize/1000 + testColumnGap
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escapePDF(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
