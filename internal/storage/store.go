// Package storage persists the ledger document.
//
// Every backend stores the whole document at once. Load never fails: any
// problem reading or decoding degrades to the default document.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"ledger/internal/core"
)

// Store loads and saves the full ledger document.
type Store interface {
	Load(ctx context.Context) core.Document
	Save(ctx context.Context, doc core.Document) error
}

var errNullDocument = errors.New("document is null")

// Encode renders doc as 2-space indented JSON. Non-ASCII text is written as is.
func Encode(doc core.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a stored document and back-fills fields missing from files
// written by older versions.
func Decode(data []byte) (core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNullDocument
	}
	doc.Normalize()
	doc.EnsureGroups(core.DefaultGroupIDs...)
	return doc, nil
}
