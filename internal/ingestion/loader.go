package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonathan/autosurvey/internal/types"
)

// Document is one corpus file after cleaning.
type Document struct {
	Path        string
	Title       string
	Domain      string
	Content     string
	Fingerprint string
}

// Reference converts the document into a corpus entry without an embedding.
func (d *Document) Reference() types.ReferenceDocument {
	return types.ReferenceDocument{
		ID:          d.Fingerprint,
		Title:       d.Title,
		Domain:      d.Domain,
		Content:     d.Content,
		Fingerprint: d.Fingerprint,
	}
}

// SupportedExtension reports whether LoadFile can read files with ext.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".html", ".htm":
		return true
	default:
		return false
	}
}

// LoadFile reads and cleans one corpus file. The domain is left to the caller.
func LoadFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtension(ext) {
		return nil, fmt.Errorf("unsupported file type %q: %s", ext, path)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var text string
	if ext == ".html" || ext == ".htm" {
		htmlTitle, extracted, err := ExtractHTMLText(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", path, err)
		}
		if htmlTitle != "" {
			title = htmlTitle
		}
		text = extracted
	} else {
		text = CleanText(string(content))
	}

	return &Document{
		Path:        path,
		Title:       title,
		Content:     text,
		Fingerprint: Fingerprint(text),
	}, nil
}

// LoadDirectory walks root and loads every supported file. A file's domain
// is the name of the directory that contains it; files directly under root
// get "none". Empty files and duplicate content are skipped. Documents are
// returned in path order.
func LoadDirectory(root string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if SupportedExtension(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory: %w", err)
	}
	sort.Strings(paths)

	cleanRoot := filepath.Clean(root)
	seen := make(map[string]bool)
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		doc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if doc.Content == "" || seen[doc.Fingerprint] {
			continue
		}
		seen[doc.Fingerprint] = true

		doc.Domain = string(types.DomainNone)
		if dir := filepath.Dir(path); filepath.Clean(dir) != cleanRoot {
			doc.Domain = filepath.Base(dir)
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}
