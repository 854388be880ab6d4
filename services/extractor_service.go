package services

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	officelicense "github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
	pdflicense "github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrUnsupportedFileType is returned for uploads with an extension the
	// extractor does not handle.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrUnreadableFile is returned when file content cannot be decoded as text.
	ErrUnreadableFile = errors.New("file content could not be decoded as text")
	// ErrEmptyDocument is returned when extraction yields no text at all.
	ErrEmptyDocument = errors.New("no text content found in document")
)

// InitDocumentLicenses registers the Unidoc license key with both document
// libraries. Called from main after configuration (including .env) is loaded,
// so a key kept only in .env is honored.
func InitDocumentLicenses(key string) {
	if key == "" {
		log.Println("UNIDOC_LICENSE_KEY not set. .pdf and .docx extraction will fail.")
		return
	}
	if err := pdflicense.SetMeteredKey(key); err != nil {
		log.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.", err)
	}
	if err := officelicense.SetMeteredKey(key); err != nil {
		log.Printf("ERROR: Failed to set Unioffice license key: %v. DOCX processing will fail.", err)
	}
}

// ExtractText turns an uploaded file into plain article text.
// It automatically handles different file types.
func ExtractText(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var raw string
	var err error
	switch ext {
	case ".txt", ".md":
		raw, err = decodePlainText(data)
	case ".docx":
		raw, err = extractTextFromDOCX(data)
	case ".pdf":
		raw, err = extractTextFromPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
	if err != nil {
		return "", err
	}

	cleaned := cleanText(raw)
	if cleaned == "" {
		return "", ErrEmptyDocument
	}
	return cleaned, nil
}

// decodePlainText decodes raw bytes as UTF-8, falling back to UTF-16 (when a
// BOM is present) and then Windows-1252 for legacy exports.
func decodePlainText(data []byte) (string, error) {
	if bytes.IndexByte(data, 0x00) >= 0 {
		// UTF-16 text legitimately contains NUL bytes, anything else is binary.
		if hasUTF16BOM(data) {
			decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
			}
			return string(decoded), nil
		}
		return "", ErrUnreadableFile
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return string(decoded), nil
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}

// extractTextFromDOCX pulls text out of a Word document: paragraphs in
// document order first, then table cells row by row.
func extractTextFromDOCX(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer doc.Close()

	var parts []string
	appendText := func(para document.Paragraph) {
		var sb strings.Builder
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			parts = append(parts, text)
		}
	}

	for _, para := range doc.Paragraphs() {
		appendText(para)
	}
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				for _, para := range cell.Paragraphs() {
					appendText(para)
				}
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}

// extractTextFromPDF uses UniPDF to get all text from a PDF file.
func extractTextFromPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n") // Add space between pages
	}

	return sb.String(), nil
}

// cleanText collapses whitespace runs inside lines, drops blank lines and
// trims the result.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.Join(strings.Fields(line), " ")
		if cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
