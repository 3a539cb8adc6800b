package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"prism/internal/analysis"
	"prism/internal/llmclient"
)

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("document contains no extractable text")

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Parse turns an uploaded file into a document ready for analysis. Plain
// text and markdown pass through; images become attachments on an
// otherwise empty document so they can accompany a text upload.
func Parse(name string, data []byte) (analysis.Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := imageMIMETypes[ext]; ok {
		return analysis.Document{
			Name:   name,
			Images: []llmclient.Attachment{{MIMEType: mime, Data: data}},
		}, nil
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return analysis.Document{}, fmt.Errorf("%q: %w", name, ErrNoText)
	}
	if !utf8.ValidString(text) {
		return analysis.Document{}, fmt.Errorf("%q: not valid UTF-8 text", name)
	}
	return analysis.Document{Name: name, Text: text}, nil
}

// Merge folds image-only documents into the first text document, so an
// upload of one paper plus its figures analyzes as a single document.
func Merge(docs []analysis.Document) []analysis.Document {
	var texts []analysis.Document
	var images []llmclient.Attachment
	for _, d := range docs {
		if d.Text == "" {
			images = append(images, d.Images...)
			continue
		}
		texts = append(texts, d)
	}
	if len(texts) > 0 && len(images) > 0 {
		texts[0].Images = append(texts[0].Images, images...)
	}
	return texts
}
