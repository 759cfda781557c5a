package patch

import (
	"fmt"
	"strconv"
)

// Kind classifies patch failures.
type Kind uint8

// Patch failure kinds.
const (
	ObjectNotFound Kind = iota + 1
	PathSegmentNotFound
	PathNotFoundForReplace
	PathNotFoundForRemove
	UnsupportedOperation
	InvalidPath
	ArrayPathUnsupported
	InvalidMergePatch
	InvalidMergeResult
)

func (k Kind) String() string {
	switch k {
	case ObjectNotFound:
		return "object_not_found"
	case PathSegmentNotFound:
		return "path_segment_not_found"
	case PathNotFoundForReplace:
		return "path_not_found_for_replace"
	case PathNotFoundForRemove:
		return "path_not_found_for_remove"
	case UnsupportedOperation:
		return "unsupported_operation"
	case InvalidPath:
		return "invalid_path"
	case ArrayPathUnsupported:
		return "array_path_unsupported"
	case InvalidMergePatch:
		return "invalid_merge_patch"
	case InvalidMergeResult:
		return "invalid_merge_result"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error describes why a patch was rejected. Nothing was persisted.
type Error struct {
	Kind Kind
	// Index is the position of the failing operation, -1 when the failure is
	// not tied to one.
	Index   int
	Op      string
	Path    string
	Segment string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ObjectNotFound:
		return "Object not found."
	case PathSegmentNotFound:
		return fmt.Sprintf("Path segment '%s' not found.", e.Segment)
	case PathNotFoundForReplace:
		return fmt.Sprintf("Path '%s' not found for replace operation.", e.Path)
	case PathNotFoundForRemove:
		return fmt.Sprintf("Path '%s' not found for remove operation.", e.Path)
	case UnsupportedOperation:
		return fmt.Sprintf("Unsupported operation '%s'.", e.Op)
	case InvalidPath:
		return fmt.Sprintf("Path '%s' has no key segment.", e.Path)
	case ArrayPathUnsupported:
		return fmt.Sprintf("Path segment '%s' addresses an array; array paths are not supported.", e.Segment)
	case InvalidMergePatch:
		return "Merge patch is not valid JSON."
	case InvalidMergeResult:
		return "Merge patch must leave the document an object."
	default:
		return e.Kind.String()
	}
}

// Is matches another *Error of the same Kind, so errors.Is(err,
// &Error{Kind: ObjectNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
