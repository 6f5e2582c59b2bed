package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DOCXParser reads word/document.xml, splitting at heading-styled paragraphs
// and keeping tables in body order.
type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

func (p *DOCXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	sections, err := parseDocxXML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}
	return &ParseResult{Sections: sections}, nil
}

// DOCX XML structures (simplified)
type docxPara struct {
	PPr  *docxParaPr `xml:"pPr"`
	Runs []docxRun   `xml:"r"`
}

type docxParaPr struct {
	PStyle *docxPStyle `xml:"pStyle"`
}

type docxPStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// parseDocxXML walks the body's direct children in order. Paragraphs
// accumulate under the current heading; a table flushes the text before it
// and becomes its own section.
func parseDocxXML(data []byte) ([]Section, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var sections []Section
	var content strings.Builder
	heading := ""
	level := 0
	depth := 0 // element depth; body children sit at depth 2

	flush := func() {
		text := strings.TrimSpace(content.String())
		if text != "" || heading != "" {
			sections = append(sections, Section{
				Heading: heading,
				Content: text,
				Level:   level,
				Type:    classifySectionType(heading, text),
			})
		}
		content.Reset()
		heading = ""
		level = 0
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth != 3 {
				continue
			}
			switch t.Name.Local {
			case "p":
				var para docxPara
				if err := dec.DecodeElement(&para, &t); err != nil {
					return nil, err
				}
				depth--
				text := strings.TrimSpace(extractParaText(para))
				if text == "" {
					continue
				}
				if lvl, ok := headingLevel(para); ok {
					flush()
					heading, level = text, lvl
					continue
				}
				if content.Len() > 0 {
					content.WriteString("\n")
				}
				content.WriteString(text)
			case "tbl":
				var tbl docxTable
				if err := dec.DecodeElement(&tbl, &t); err != nil {
					return nil, err
				}
				depth--
				if table := renderDocxTable(tbl); table != "" {
					if content.Len() > 0 {
						// keep the heading with the prose, not the table
						flush()
					}
					sections = append(sections, Section{Content: table, Type: "table"})
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	flush()
	return sections, nil
}

func renderDocxTable(tbl docxTable) string {
	var b strings.Builder
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			var parts []string
			for _, p := range cell.Paras {
				if t := strings.TrimSpace(extractParaText(p)); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func extractParaText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for range run.Tabs {
			b.WriteString(" ")
		}
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}

// headingLevel reports the level of a Heading1..9 or Title styled paragraph.
func headingLevel(para docxPara) (int, bool) {
	if para.PPr == nil || para.PPr.PStyle == nil {
		return 0, false
	}
	style := strings.ToLower(para.PPr.PStyle.Val)
	switch {
	case strings.HasPrefix(style, "title"):
		return 1, true
	case strings.HasPrefix(style, "heading"):
		if n, err := strconv.Atoi(strings.TrimPrefix(style, "heading")); err == nil && n >= 1 && n <= 9 {
			return n, true
		}
		return 1, true
	}
	return 0, false
}
