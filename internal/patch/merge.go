package patch

import (
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/uuid"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/models"
)

// MergePatch applies an RFC 7386 JSON merge patch to the fields of document
// id. Keys set to null in the patch are removed.
//
// The merged result must still be an object.
func (e *Engine) MergePatch(ctx context.Context, id uuid.UUID, mergePatch json.RawMessage) (*models.Document, error) {
	doc, err := e.store.Modify(ctx, id, func(doc *models.Document) error {
		fields, err := MergeFields(doc.Fields, mergePatch)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
	return doc, finish(err)
}

// MergeFields returns fields with mergePatch applied. fields is not modified.
func MergeFields(fields map[string]jsonval.Value, mergePatch json.RawMessage) (map[string]jsonval.Value, error) {
	orig, err := json.Marshal(jsonval.ObjectValue(fields))
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(orig, mergePatch)
	if err != nil {
		return nil, &Error{Kind: InvalidMergePatch, Index: -1}
	}
	var v jsonval.Value
	if err := json.Unmarshal(merged, &v); err != nil {
		return nil, &Error{Kind: InvalidMergePatch, Index: -1}
	}
	if v.Kind() != jsonval.Object {
		return nil, &Error{Kind: InvalidMergeResult, Index: -1}
	}
	return v.Object(), nil
}
