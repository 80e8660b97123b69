package lsp

import (
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/walteh/semdelta/pkg/lsp/protocol"
)

// normalizeURI ensures consistent URI handling by removing the file:// prefix if present
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	// remove the file:/private prefix
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Document represents a text document with its metadata
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Content    string
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
	fs    afero.Fs
}

// NewDocumentManager returns a manager that falls back to fs for documents the
// client never opened. A nil fs disables the fallback.
func NewDocumentManager(fs afero.Fs) *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
		fs:    fs,
	}
}

func (m *DocumentManager) GetNoFallback(uri protocol.DocumentURI) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(string(uri)))
	if !ok {
		return nil, false
	}
	doc, ok := content.(*Document)
	return doc, ok
}

func (m *DocumentManager) Get(uri protocol.DocumentURI) (*Document, bool) {
	if doc, ok := m.GetNoFallback(uri); ok {
		return doc, true
	}
	if m.fs == nil {
		return nil, false
	}

	// try filesystem
	normalizedURI := normalizeURI(string(uri))
	content, err := afero.ReadFile(m.fs, normalizedURI)
	if err != nil {
		return nil, false
	}
	doc := &Document{
		URI:     normalizedURI,
		Content: string(content),
	}
	actual, _ := m.store.LoadOrStore(normalizedURI, doc)
	return actual.(*Document), true
}

// Store replaces the document under uri. Documents are never mutated in place.
func (m *DocumentManager) Store(uri protocol.DocumentURI, doc *Document) {
	m.store.Store(normalizeURI(string(uri)), doc)
}

func (m *DocumentManager) Delete(uri protocol.DocumentURI) {
	m.store.Delete(normalizeURI(string(uri)))
}
