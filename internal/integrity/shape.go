package integrity

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/tallykeep/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Schema names as declared in schema.cue.
const (
	SchemaSnapshot = "#Snapshot"
	SchemaEnvelope = "#Envelope"
	SchemaLegacy   = "#Legacy"
)

var (
	// ErrShapeInvalid is the sentinel wrapped by every *ShapeError.
	ErrShapeInvalid = errors.New("integrity: shape invalid")

	// ErrUnrecognized means no accepted document layout matched.
	ErrUnrecognized = errors.New("integrity: unrecognized document")
)

// ShapeError reports which schema rejected a document and why.
type ShapeError struct {
	Schema string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape invalid against %s: %s", e.Schema, e.Detail)
}

func (e *ShapeError) Unwrap() error { return ErrShapeInvalid }

// schemas holds the compiled schema.cue.
// A cue.Context is not safe for concurrent use, so every evaluation holds mu.
type schemas struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

var (
	compiled     *schemas
	compileOnce  sync.Once
	compileError error
)

func load() (*schemas, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		root := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := root.Err(); err != nil {
			compileError = fmt.Errorf("compile schema.cue: %w", err)
			return
		}
		compiled = &schemas{ctx: ctx, root: root}
	})
	return compiled, compileError
}

// check unifies raw JSON with the named definition and requires a concrete result.
func check(schema string, raw []byte) error {
	s, err := load()
	if err != nil {
		return err
	}
	// CUE accepts a superset of JSON; references and comments are not data.
	if !json.Valid(raw) {
		return &ShapeError{Schema: schema, Detail: "document is not valid JSON"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.root.LookupPath(cue.ParsePath(schema))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup %s: %w", schema, err)
	}

	doc := s.ctx.CompileBytes(raw, cue.Filename("document.json"))
	if err := doc.Err(); err != nil {
		return &ShapeError{Schema: schema, Detail: describe(err)}
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ShapeError{Schema: schema, Detail: describe(err)}
	}
	return nil
}

// describe flattens a CUE error list into one line, keeping the first few entries.
func describe(err error) string {
	const maxDetails = 3

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}

	msgs := make([]string, 0, maxDetails)
	for i, e := range errs {
		if i == maxDetails {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(errs)-maxDetails))
			break
		}
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// CheckShape validates a raw JSON document against #Snapshot.
//
// The four core collections, billerInfo, version and lastModified must be
// present. Optional collections must be lists of objects when present.
// Unknown fields are allowed.
func CheckShape(raw []byte) error {
	return check(SchemaSnapshot, raw)
}

// ValidateSnapshot applies the snapshot shape check to a typed value.
//
// Beyond CheckShape it requires a non-empty version and a positive
// lastModified, which the JSON schema alone cannot tell apart from zero
// values.
func ValidateSnapshot(s model.Snapshot) error {
	if s.Version == "" {
		return &ShapeError{Schema: SchemaSnapshot, Detail: "version is empty"}
	}
	if s.LastModified <= 0 {
		return &ShapeError{Schema: SchemaSnapshot, Detail: "lastModified must be positive"}
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return &ShapeError{Schema: SchemaSnapshot, Detail: err.Error()}
	}
	return CheckShape(raw)
}
