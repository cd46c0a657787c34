package biz

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kart-io/logger"
	"github.com/ledongthuc/pdf"
)

// minRunLength 可打印文本片段的最小长度。
const minRunLength = 4

// ExtractText 按扩展名从文件内容中提取纯文本。
// limit 限制 PDF 和 DOCX 解压后读取的字节数，.doc 等其他格式只取可打印片段。
func ExtractText(ext string, data []byte, limit int64) string {
	var text string
	switch ext {
	case ".txt", ".md":
		text = strings.ToValidUTF8(string(data), "")
	case ".docx":
		text = extractDOCX(data, limit)
	case ".pdf":
		text = extractPDF(data, limit)
	default:
		text = printableRuns(data)
	}
	return strings.TrimSpace(text)
}

// extractDOCX 读取 word/document.xml 中 w:t 元素的文本，每个段落一行。
// 解压后最多读取 limit 字节。
func extractDOCX(data []byte, limit int64) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		defer rc.Close()
		return paragraphsFromXML(io.LimitReader(rc, limit))
	}
	return ""
}

func paragraphsFromXML(r io.Reader) string {
	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String()
}

// extractPDF 逐页读取文本。每页的内容流和 ToUnicode 映射先按剩余额度试读，
// 超出额度的页面直接跳过，返回的文本同样不超过 limit 字节。
func extractPDF(data []byte, limit int64) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnw("PDF extraction aborted", "error", fmt.Sprint(r))
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warnw("Failed to parse PDF", "error", err.Error())
		return ""
	}

	budget := limit
	var content strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		size, ok := pageStreamSize(page, budget)
		if !ok {
			logger.Warnw("PDF page skipped", "page", i, "reason", "content exceeds inflate limit", "limit", limit)
			continue
		}
		budget -= size

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// 跳过无法解析的页面
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n")
		}
		content.WriteString(pageText)
		if int64(content.Len()) >= limit {
			break
		}
	}

	text = content.String()
	if int64(len(text)) > limit {
		text = strings.ToValidUTF8(text[:limit], "")
	}
	return text
}

// pageStreamSize 统计页面解压后需要读取的字节数，超过 budget 时返回 false。
func pageStreamSize(page pdf.Page, budget int64) (int64, bool) {
	total, ok := inflatedSize(page.V.Key("Contents"), budget)
	if !ok {
		return total, false
	}
	for _, name := range page.Fonts() {
		n, ok := inflatedSize(page.Font(name).V.Key("ToUnicode"), budget-total)
		total += n
		if !ok {
			return total, false
		}
	}
	return total, true
}

func inflatedSize(v pdf.Value, budget int64) (int64, bool) {
	switch v.Kind() {
	case pdf.Stream:
		rc := v.Reader()
		defer rc.Close()
		n, _ := io.Copy(io.Discard, io.LimitReader(rc, budget+1))
		return n, n <= budget
	case pdf.Array:
		var total int64
		for i := 0; i < v.Len(); i++ {
			n, ok := inflatedSize(v.Index(i), budget-total)
			total += n
			if !ok {
				return total, false
			}
		}
		return total, true
	default:
		return 0, true
	}
}

// printableRuns 收集长度不少于 minRunLength 的可打印文本片段。
func printableRuns(data []byte) string {
	var (
		runs []string
		cur  strings.Builder
	)
	flush := func() {
		if utf8.RuneCountInString(cur.String()) >= minRunLength {
			runs = append(runs, strings.TrimSpace(cur.String()))
		}
		cur.Reset()
	}
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError || (r < 0x20 && r != '\t') || r == 0x7f {
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()

	out := runs[:0]
	for _, r := range runs {
		if r != "" {
			out = append(out, r)
		}
	}
	return strings.Join(out, "\n")
}
