package rag

import (
	"bytes"
	"io"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

// DocumentParser 文档解析器接口，按声明的filetype标签提取纯文本
type DocumentParser interface {
	Parse(reader io.Reader) (string, error)
	Supports(filetype string) bool
}

// TextParser 纯文本解析器
type TextParser struct{}

func (p *TextParser) Supports(filetype string) bool {
	switch strings.ToLower(filetype) {
	case "txt", "md", "markdown", "text":
		return true
	}
	return false
}

func (p *TextParser) Parse(reader io.Reader) (string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", apperrors.NewUnreadableDocumentError("text", err)
	}
	return string(content), nil
}

// PDFParser PDF文档解析器，按页序拼接文本
type PDFParser struct{}

func (p *PDFParser) Supports(filetype string) bool {
	return strings.ToLower(filetype) == "pdf"
}

func (p *PDFParser) Parse(reader io.Reader) (string, error) {
	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", apperrors.NewUnreadableDocumentError("pdf", err)
	}

	pdfReader, err := pdfmodel.NewPdfReader(bytes.NewReader(pdfBytes))
	if err != nil {
		return "", apperrors.NewUnreadableDocumentError("pdf", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", apperrors.NewUnreadableDocumentError("pdf", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", apperrors.NewUnreadableDocumentError("pdf", err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", apperrors.NewUnreadableDocumentError("pdf", err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", apperrors.NewUnreadableDocumentError("pdf", err)
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}

// WordParser Word文档解析器（仅支持docx）
type WordParser struct{}

func (p *WordParser) Supports(filetype string) bool {
	return strings.ToLower(filetype) == "docx"
}

func (p *WordParser) Parse(reader io.Reader) (string, error) {
	docBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", apperrors.NewUnreadableDocumentError("docx", err)
	}

	// document.Read需要ReaderAt接口
	readerAt := bytes.NewReader(docBytes)
	doc, err := document.Read(readerAt, int64(len(docBytes)))
	if err != nil {
		return "", apperrors.NewUnreadableDocumentError("docx", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			textBuilder.WriteString(run.Text())
		}
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}

// ParserManager 文档解析器管理器
type ParserManager struct {
	parsers []DocumentParser
}

// NewParserManager 创建文档解析器管理器
func NewParserManager() *ParserManager {
	return &ParserManager{
		parsers: []DocumentParser{
			&PDFParser{},
			&WordParser{},
			&TextParser{},
		},
	}
}

// Parse 按filetype标签解析文档，提取纯文本
func (m *ParserManager) Parse(reader io.Reader, filetype string) (string, error) {
	for _, parser := range m.parsers {
		if parser.Supports(filetype) {
			return parser.Parse(reader)
		}
	}
	return "", apperrors.NewUnreadableDocumentError(filetype, nil).
		WithDetails("unsupported filetype")
}

// SupportedFiletypes 返回支持的filetype标签
func (m *ParserManager) SupportedFiletypes() []string {
	return []string{"pdf", "docx", "txt", "md"}
}
