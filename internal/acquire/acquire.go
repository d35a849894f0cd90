// Package acquire turns source documents into plain text. Extraction only
// ever sees text; everything format-specific (PDF decoding, MIME parsing,
// OCR via the vision service) ends here.
package acquire

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/ledongthuc/pdf"
)

// VisionClient reads text out of an image. Optional; without it image
// documents fail acquisition.
type VisionClient interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

type Service struct {
	vision VisionClient
}

func NewService(vision VisionClient) *Service {
	return &Service{vision: vision}
}

var imageMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Supported reports whether the file extension is one the service knows how
// to read. Unsupported files are skipped by the pipeline walker rather than
// recorded as failures.
func (s *Service) Supported(path string) bool {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text", ".pdf", ".eml":
		return true
	default:
		_, ok := imageMimeTypes[ext]
		return ok
	}
}

func (s *Service) AcquireText(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".text":
		blob, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(blob), nil
	case ".pdf":
		return pdfText(path)
	case ".eml":
		blob, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return s.mailText(blob)
	}

	if mimeType, ok := imageMimeTypes[ext]; ok {
		if s.vision == nil {
			return "", fmt.Errorf("image %s: no vision service configured", path)
		}
		blob, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		text, err := s.vision.ExtractText(ctx, blob, mimeType)
		if err != nil {
			return "", fmt.Errorf("vision text for %s: %w", path, err)
		}
		return text, nil
	}

	return "", fmt.Errorf("unsupported document type %q", ext)
}

func pdfText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}

// mailText collects every text-bearing part of a message: the plain body,
// HTML with tables flattened into aligned rows, and any text or PDF
// attachments.
func (s *Service) mailText(raw []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse mail: %w", err)
	}

	var parts []string
	if body := strings.TrimSpace(env.Text); body != "" {
		parts = append(parts, body)
	}
	if env.HTML != "" {
		if flat, err := flattenHTML(env.HTML); err == nil && strings.TrimSpace(flat) != "" {
			parts = append(parts, flat)
		}
	}

	for _, att := range env.Attachments {
		switch strings.ToLower(filepath.Ext(att.FileName)) {
		case ".txt", ".text":
			parts = append(parts, string(att.Content))
		case ".pdf":
			if text, err := pdfBlobText(att.Content); err == nil && strings.TrimSpace(text) != "" {
				parts = append(parts, text)
			}
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("mail has no readable text")
	}
	return strings.Join(parts, "\n\n"), nil
}

func pdfBlobText(blob []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// flattenHTML renders table rows as double-space separated columns so the
// row tokenizer can treat them like fixed-width print, then appends the
// remaining prose.
func flattenHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, "  "))
				b.WriteByte('\n')
			}
		})
		table.Remove()
	})

	for _, line := range strings.Split(doc.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			b.WriteString(trimmed)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
