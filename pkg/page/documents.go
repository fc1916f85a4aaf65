package page

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed documents/*.html
var documentFiles embed.FS

// Document is a sanitized HTML fragment with a title.
type Document struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Documents are the legal texts linked from the form.
type Documents struct {
	Terms   Document
	Privacy Document
}

// Lookup returns the document for a slug ("terms" or "privacy").
func (d Documents) Lookup(slug string) (Document, bool) {
	switch slug {
	case d.Terms.Slug:
		return d.Terms, true
	case d.Privacy.Slug:
		return d.Privacy, true
	}
	return Document{}, false
}

// LoadDocuments reads the terms and privacy documents from disk, falling back
// to the bundled texts for empty paths. Every body is sanitized.
func LoadDocuments(termsPath, privacyPath string) (Documents, error) {
	terms, err := readDocument(termsPath, "documents/terms.html")
	if err != nil {
		return Documents{}, err
	}
	privacy, err := readDocument(privacyPath, "documents/privacy.html")
	if err != nil {
		return Documents{}, err
	}
	return Documents{
		Terms:   Document{Slug: "terms", Title: "Terms and Conditions", Body: Sanitize(terms)},
		Privacy: Document{Slug: "privacy", Title: "Privacy Policy", Body: Sanitize(privacy)},
	}, nil
}

// DefaultDocuments returns the bundled documents.
func DefaultDocuments() Documents {
	docs, err := LoadDocuments("", "")
	if err != nil {
		panic(fmt.Sprintf("page: bundled documents: %v", err))
	}
	return docs
}

func readDocument(path, fallback string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		data, err := documentFiles.ReadFile(fallback)
		if err != nil {
			return "", fmt.Errorf("page: read bundled document: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("page: read document %q: %w", path, err)
	}
	return string(data), nil
}

var (
	documentPolicyOnce sync.Once
	documentPolicy     *bluemonday.Policy
)

// Sanitize strips anything but user-generated-content markup from raw.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(documentSanitizer().Sanitize(trimmed))
}

func documentSanitizer() *bluemonday.Policy {
	documentPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AllowAttrs("class").Globally()
		documentPolicy = policy
	})
	return documentPolicy
}
