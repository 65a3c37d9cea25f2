package manifest

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// checkSchema validates a decoded minlang.toml document against
// schema.cue and reports the first violation.
func checkSchema(doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(ctx.Encode(doc))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		return errors.New(cueerrors.String(errs[0]))
	}
	return err
}
