// Package models defines the core data structures used throughout the application.
package models

import (
	"github.com/google/uuid"
	"github.com/maruel/jsonstore/internal/jsonval"
)

// Document is the unit of storage: a bag of JSON fields keyed by a UUID.
type Document struct {
	ID     uuid.UUID                `json:"id"`
	Fields map[string]jsonval.Value `json:"data"`
}

// NewDocument returns a document with a fresh random ID.
func NewDocument(fields map[string]jsonval.Value) *Document {
	if fields == nil {
		fields = map[string]jsonval.Value{}
	}
	return &Document{ID: uuid.New(), Fields: fields}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	return &Document{ID: d.ID, Fields: jsonval.CloneObject(d.Fields)}
}

// Root returns the fields as an object Value sharing d's map.
func (d *Document) Root() jsonval.Value {
	if d.Fields == nil {
		d.Fields = map[string]jsonval.Value{}
	}
	return jsonval.ObjectValue(d.Fields)
}

// PatchOp is the kind of a patch operation.
type PatchOp string

const (
	// OpAdd sets a key, creating or overwriting it.
	OpAdd PatchOp = "add"
	// OpReplace overwrites an existing key.
	OpReplace PatchOp = "replace"
	// OpRemove deletes an existing key.
	OpRemove PatchOp = "remove"
)

// PatchOperation is a single path-addressed mutation of a document's fields.
//
// Path is a slash-delimited list of object keys, e.g. "/a/b" selects key "b"
// inside the object at key "a". Value is ignored for remove.
type PatchOperation struct {
	Op    PatchOp       `json:"op"`
	Path  string        `json:"path"`
	Value jsonval.Value `json:"value,omitzero"`
}
