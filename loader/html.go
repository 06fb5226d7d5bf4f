// Package loader extracts analyzable plain text from source documents, so
// web pages can be fed to the pipeline without their markup.
package loader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLLoader extracts visible text from HTML documents.
type HTMLLoader struct {
	selector string
	skip     []string
}

// HTMLLoaderOption configures the HTMLLoader
type HTMLLoaderOption func(*HTMLLoader)

// WithSelector restricts extraction to elements matching the CSS selector,
// e.g. "article" or "#content".
func WithSelector(selector string) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		l.selector = selector
	}
}

// WithSkipElements replaces the default set of stripped elements.
func WithSkipElements(selectors ...string) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		l.skip = selectors
	}
}

// NewHTMLLoader creates a new HTMLLoader. By default it reads the whole body
// and strips script, style and noscript elements.
func NewHTMLLoader(opts ...HTMLLoaderOption) *HTMLLoader {
	l := &HTMLLoader{
		selector: "body",
		skip:     []string{"script", "style", "noscript"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load extracts the text of an HTML document.
func (l *HTMLLoader) Load(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, selector := range l.skip {
		doc.Find(selector).Remove()
	}

	root := doc.Find(l.selector)
	if root.Length() == 0 {
		root = doc.Selection
	}

	return normalizeWhitespace(root.Text()), nil
}

// LoadFile extracts the text of an HTML file.
func (l *HTMLLoader) LoadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open html file: %w", err)
	}
	defer f.Close()
	return l.Load(f)
}

// normalizeWhitespace collapses runs of whitespace into single spaces and
// keeps blank lines as paragraph breaks.
func normalizeWhitespace(s string) string {
	var paragraphs []string
	for _, para := range strings.Split(s, "\n\n") {
		fields := strings.Fields(para)
		if len(fields) == 0 {
			continue
		}
		paragraphs = append(paragraphs, strings.Join(fields, " "))
	}
	return strings.Join(paragraphs, "\n\n")
}
