package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

func TestTextParser_Parse(t *testing.T) {
	parser := &TextParser{}
	assert.True(t, parser.Supports("txt"))
	assert.True(t, parser.Supports("MD"))
	assert.False(t, parser.Supports("pdf"))

	text, err := parser.Parse(strings.NewReader("hello 世界"))
	require.NoError(t, err)
	assert.Equal(t, "hello 世界", text)
}

func TestPDFParser_Supports(t *testing.T) {
	parser := &PDFParser{}
	assert.True(t, parser.Supports("pdf"))
	assert.True(t, parser.Supports("PDF"))
	assert.False(t, parser.Supports("docx"))
}

func TestPDFParser_UnreadableInput(t *testing.T) {
	parser := &PDFParser{}

	_, err := parser.Parse(strings.NewReader("this is not a pdf"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnreadableDocument))
}

func TestWordParser_UnreadableInput(t *testing.T) {
	parser := &WordParser{}

	_, err := parser.Parse(strings.NewReader("this is not a docx"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnreadableDocument))
}

func TestParserManager_DispatchesByFiletype(t *testing.T) {
	manager := NewParserManager()

	text, err := manager.Parse(strings.NewReader("plain content"), "txt")
	require.NoError(t, err)
	assert.Equal(t, "plain content", text)
}

func TestParserManager_UnsupportedFiletype(t *testing.T) {
	manager := NewParserManager()

	_, err := manager.Parse(strings.NewReader("data"), "xlsx")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnreadableDocument))
}

func TestParserManager_SupportedFiletypes(t *testing.T) {
	manager := NewParserManager()
	assert.ElementsMatch(t, []string{"pdf", "docx", "txt", "md"}, manager.SupportedFiletypes())
}
