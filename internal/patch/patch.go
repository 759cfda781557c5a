// Package patch applies path-addressed mutations to stored documents.
//
// A patch is an ordered list of operations. They run one after the other on a
// private copy of the document's fields and the result is persisted only when
// every operation succeeded, so a failing patch never changes storage.
package patch

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/metrics"
	"github.com/maruel/jsonstore/internal/models"
	"github.com/maruel/jsonstore/internal/storage"
)

// Store is the part of the storage engine the patch engine needs: an atomic
// get, mutate and update of one document.
type Store interface {
	Modify(ctx context.Context, id uuid.UUID, fn func(*models.Document) error) (*models.Document, error)
}

// Engine applies patches through a Store. It keeps no state between calls.
type Engine struct {
	store Store
}

// NewEngine returns an Engine persisting through store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Apply runs ops against document id and returns the updated document.
//
// It stops at the first failing operation and returns a *Error describing it;
// in that case storage is left untouched. Other errors come from the store.
func (e *Engine) Apply(ctx context.Context, id uuid.UUID, ops []models.PatchOperation) (*models.Document, error) {
	doc, err := e.store.Modify(ctx, id, func(doc *models.Document) error {
		fields, err := ApplyFields(doc.Fields, ops)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
	return doc, finish(err)
}

// ApplyFields runs ops on a copy of fields and returns the copy. fields is
// never modified.
func ApplyFields(fields map[string]jsonval.Value, ops []models.PatchOperation) (map[string]jsonval.Value, error) {
	tree := jsonval.CloneObject(fields)
	if tree == nil {
		tree = map[string]jsonval.Value{}
	}
	for i, op := range ops {
		if err := applyOne(tree, i, op); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func applyOne(root map[string]jsonval.Value, i int, op models.PatchOperation) error {
	fail := func(k Kind, seg string) error {
		return &Error{Kind: k, Index: i, Op: string(op.Op), Path: op.Path, Segment: seg}
	}
	trimmed := strings.Trim(op.Path, "/")
	if trimmed == "" {
		return fail(InvalidPath, "")
	}
	segs := strings.Split(trimmed, "/")

	parent := root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := parent[seg]
		if !ok {
			return fail(PathSegmentNotFound, seg)
		}
		switch child.Kind() {
		case jsonval.Object:
			parent = child.Object()
		case jsonval.Array:
			return fail(ArrayPathUnsupported, seg)
		default:
			return fail(PathSegmentNotFound, seg)
		}
	}

	last := segs[len(segs)-1]
	_, exists := parent[last]
	switch models.PatchOp(strings.ToLower(string(op.Op))) {
	case models.OpAdd:
		parent[last] = op.Value.Clone()
	case models.OpReplace:
		if !exists {
			return fail(PathNotFoundForReplace, last)
		}
		parent[last] = op.Value.Clone()
	case models.OpRemove:
		if !exists {
			return fail(PathNotFoundForRemove, last)
		}
		delete(parent, last)
	default:
		return fail(UnsupportedOperation, last)
	}
	return nil
}

// finish maps a missing document to ObjectNotFound and records the outcome.
func finish(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		err = &Error{Kind: ObjectNotFound, Index: -1}
	}
	var pe *Error
	switch {
	case err == nil:
		metrics.RecordPatch("ok")
	case errors.As(err, &pe):
		metrics.RecordPatch(pe.Kind.String())
	default:
		metrics.RecordPatch("error")
	}
	return err
}
