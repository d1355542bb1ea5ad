package cel

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles request predicates over method, path, headers and query.
// Header names are lower-cased; multi-valued headers and query parameters
// expose their first value.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("method", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("query", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// Predicate is a compiled boolean expression, safe for concurrent use.
type Predicate struct {
	expression string
	program    cel.Program
}

func (e *Evaluator) CompilePredicate(expression string) (*Predicate, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("predicate expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Predicate{expression: expression, program: program}, nil
}

func (p *Predicate) String() string {
	return p.expression
}

func (p *Predicate) Match(ctx context.Context, r *http.Request) (bool, error) {
	result, _, err := p.program.ContextEval(ctx, RequestVars(r))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func RequestVars(r *http.Request) map[string]interface{} {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	query := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	return map[string]interface{}{
		"method":  r.Method,
		"path":    r.URL.Path,
		"headers": headers,
		"query":   query,
	}
}
