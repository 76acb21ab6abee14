package backup

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

// schema holds the compiled document schema. A cue.Context is not safe for
// concurrent use, so every validation runs under mu.
var schema struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	val  cue.Value
	err  error
}

func compiledSchema() (*cue.Context, cue.Value, error) {
	schema.once.Do(func() {
		schema.ctx = cuecontext.New()
		schema.val = schema.ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		schema.err = schema.val.Err()
	})
	return schema.ctx, schema.val, schema.err
}

// validate checks raw JSON against the document schema.
func validate(data []byte) error {
	schema.mu.Lock()
	defer schema.mu.Unlock()

	ctx, sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile backup schema: %w", err)
	}

	expr, err := cuejson.Extract("backup.json", data)
	if err != nil {
		return &ValidationError{Problems: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return &ValidationError{Problems: problems(err)}
	}

	if err := sch.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Problems: problems(err)}
	}
	return nil
}

// problems flattens a CUE error list into one message per failure.
func problems(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
