// Package parser turns syllabus documents into chunks ready for
// embedding. Module and topic headings found in the text become chunk
// metadata so answers can cite them.
package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"examprep/internal/config"
	"examprep/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

const (
	defaultChunkSize    = 1000 // bytes
	defaultChunkOverlap = 200  // bytes
)

// moduleHeadingRegex matches KTU-style module headings, e.g.
// "Module 3: Graph Algorithms" or "MODULE-2 Trees".
var moduleHeadingRegex = regexp.MustCompile(`(?mi)^#{0,6}\s*module[\s\-]*(\d+)\s*[:.\-]?\s*(.*)$`)

type Parser struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Parser {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if cfg.RAG.ChunkSize == 0 || cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	return &Parser{cfg: cfg}
}

// ParseFile extracts text from a syllabus document and splits it into
// chunks with module/topic metadata.
func (p *Parser) ParseFile(filePath string) ([]models.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var text string
	var err error
	switch ext {
	case ".pdf":
		text, err = extractPDF(filePath)
	case ".docx":
		text, err = extractDOCX(filePath)
	case ".xlsx", ".ods":
		text, err = extractSpreadsheet(filePath)
	case ".md", ".txt":
		text, err = extractText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	return p.chunkSyllabus(text)
}

func extractPDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		pageText, err := reader.Page(i).GetPlainText(nil)
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func extractDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return r.Editable().GetContent(), nil
}

func extractSpreadsheet(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func extractText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// chunkSyllabus splits text into module sections first, then into
// overlapping chunks that carry the section's module number and topic.
func (p *Parser) chunkSyllabus(text string) ([]models.Chunk, error) {
	normalized := markdownToPlain(text)

	var chunks []models.Chunk
	chunkID := 0
	for _, section := range splitModules(normalized) {
		for _, content := range chunkContent(section.content, p.cfg.RAG.ChunkSize, p.cfg.RAG.ChunkOverlap) {
			if len(strings.TrimSpace(content)) < 20 {
				continue // skip very small chunks
			}
			chunkID++
			chunks = append(chunks, models.Chunk{
				Content:      content,
				ModuleNumber: section.moduleNumber,
				Topic:        section.topic,
				ChunkID:      chunkID,
			})
		}
	}
	return chunks, nil
}

type moduleSection struct {
	moduleNumber int
	topic        string
	content      string
}

func splitModules(text string) []moduleSection {
	matches := moduleHeadingRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []moduleSection{{content: text}}
	}

	var sections []moduleSection
	if preamble := strings.TrimSpace(text[:matches[0][0]]); preamble != "" {
		sections = append(sections, moduleSection{content: preamble})
	}
	for i, match := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		moduleNumber, _ := strconv.Atoi(text[match[2]:match[3]])
		topic := ""
		if match[4] >= 0 {
			topic = strings.TrimSpace(text[match[4]:match[5]])
		}
		sections = append(sections, moduleSection{
			moduleNumber: moduleNumber,
			topic:        topic,
			content:      strings.TrimSpace(text[match[1]:end]),
		})
	}
	return sections
}

// markdownToPlain flattens markdown structure to plain text so chunk
// boundaries and embeddings are not polluted by markup.
func markdownToPlain(source string) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	src := []byte(source)
	doc := md.Parser().Parse(gmtext.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Heading, *ast.Paragraph, *ast.ListItem:
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Trim(buf.String(), " \t\n\r")
}

// chunk content into chunks with maxChars and overlapChars
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		// Prefer a clean break near the chunk boundary
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		start += maxChars - overlapChars
		if start >= contentLen {
			break
		}
	}
	return chunks
}
