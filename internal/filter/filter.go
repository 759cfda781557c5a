// Package filter compiles boolean expressions into document predicates.
//
// Expressions use the expr language (https://expr-lang.org). Each document is
// exposed as two variables: id, the document id as a string, and data, its
// fields as plain Go values. Examples:
//
//	data.status == "active" && data.score > 10
//	"owner" in data && data.owner.name startsWith "a"
//	id == "0f8fad5b-d9cb-469f-a165-70867728950e"
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/models"
	"github.com/maruel/jsonstore/internal/storage"
)

var (
	// ErrEmpty is returned by Compile for a blank expression.
	ErrEmpty = errors.New("empty filter expression")
	// ErrInvalid wraps parse and type errors returned by Compile.
	ErrInvalid = errors.New("invalid filter expression")
)

// Expression is a compiled filter.
type Expression struct {
	source  string
	program *vm.Program
}

// Compile parses and type checks source.
func Compile(source string) (*Expression, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrEmpty
	}
	program, err := expr.Compile(source,
		expr.Env(env(&models.Document{})),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &Expression{source: source, program: program}, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}

// Match evaluates the expression against doc.
func (e *Expression) Match(doc *models.Document) (bool, error) {
	out, err := expr.Run(e.program, env(doc))
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T, not bool", out)
	}
	return b, nil
}

// Predicate returns the expression as a storage predicate.
func (e *Expression) Predicate() storage.Predicate {
	return e.Match
}

func env(doc *models.Document) map[string]any {
	return map[string]any{
		"id":   doc.ID.String(),
		"data": jsonval.ObjectInterface(doc.Fields),
	}
}
