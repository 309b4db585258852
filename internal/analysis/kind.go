// Package analysis ties uploaded documents to the derived views. A Session
// computes each view at most once for a fixed set of documents; a Cache
// reuses sessions across requests while the documents are unchanged.
package analysis

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/jsonv"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/minio/highwayhash"
)

// ErrUnsupportedKind is returned for files that are not a report layout, a
// model or a dependency export.
var ErrUnsupportedKind = errors.New("unsupported document")

// AllowedExtensions lists the accepted upload extensions.
var AllowedExtensions = []string{".tsv", ".json", ".bim"}

// Allowed reports whether name has an accepted extension.
func Allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// DetectKind classifies a document by extension, sniffing JSON content.
// A .json file with top-level "sections" is a report layout and one with
// "model" is a model.
func DetectKind(name string, content []byte) (state.Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tsv":
		return state.KindDependencies, nil
	case ".bim":
		return state.KindModel, nil
	case ".json":
		doc, err := jsonv.Parse(content)
		if err != nil {
			return "", fmt.Errorf("%w: %s is not valid json: %w", ErrUnsupportedKind, name, err)
		}
		switch {
		case doc.Has("sections"):
			return state.KindReport, nil
		case doc.Has("model"):
			return state.KindModel, nil
		}
		return "", fmt.Errorf("%w: %s has neither sections nor model", ErrUnsupportedKind, name)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, name)
	}
}

var fingerprintKey = []byte("pbilens-document-fingerprint-key")

// Fingerprint returns a hex HighwayHash-64 of content.
func Fingerprint(content []byte) string {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		// The key length is fixed at 32 bytes.
		panic(err)
	}
	_, _ = h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// NewDocument builds a document ready to be stored, detecting its kind and
// fingerprint.
func NewDocument(name string, content []byte) (*state.Document, error) {
	kind, err := DetectKind(name, content)
	if err != nil {
		return nil, err
	}
	return &state.Document{
		Name:        filepath.Base(name),
		Kind:        kind,
		Content:     content,
		Fingerprint: Fingerprint(content),
	}, nil
}
