// Package document enumerates and loads the source documents for one
// analysis run. The loader reads raw bytes only; all content interpretation
// is deferred to the vision extraction layer.
package document

import (
	"fmt"
)

// Kind is the source format of a document.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
)

// Document is one raw source document handle.
type Document struct {
	ID   string
	Name string
	Path string
	Kind Kind
	Data []byte
}

// Set is the ordered collection of financial documents plus the optional
// valuation-parameters document.
type Set struct {
	Financial []Document
	Valuation *Document
}

// MissingInputError is returned when the financial-documents directory
// contains no usable documents. It is fatal and raised before any model call.
type MissingInputError struct {
	Dir string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("no financial documents found in %s", e.Dir)
}
