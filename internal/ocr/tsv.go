package ocr

import (
	"strconv"
	"strings"

	"docextract/internal/port"
)

// tesseract TSV columns:
// level page_num block_num par_num line_num word_num left top width height conf text
const (
	colLevel = iota
	colPageNum
	colBlockNum
	colParNum
	colLineNum
	colWordNum
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

const wordLevel = 5

// ParseTSV extracts word rows from tesseract TSV output. pageNum overrides
// tesseract's own page counter, which restarts at 1 for every image.
func ParseTSV(out []byte, pageNum int) []port.WordBox {
	lines := strings.Split(string(out), "\n")
	boxes := make([]port.WordBox, 0, len(lines))
	for i, ln := range lines {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < tsvColumns {
			continue
		}
		if lvl, err := strconv.Atoi(cols[colLevel]); err != nil || lvl != wordLevel {
			continue
		}
		text := strings.TrimSpace(cols[colText])
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[colConf], 64)
		if err != nil {
			conf = -1
		}
		boxes = append(boxes, port.WordBox{
			Text:       text,
			Confidence: conf,
			Left:       atoi(cols[colLeft]),
			Top:        atoi(cols[colTop]),
			Width:      atoi(cols[colWidth]),
			Height:     atoi(cols[colHeight]),
			PageNum:    pageNum,
		})
	}
	return boxes
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
