package clabject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-clabject/graph"
)

var (
	// ErrUnknownNode indicates an operation referenced a node not in the model.
	ErrUnknownNode = graph.ErrUnknownNode
	// ErrCycleDetected indicates the generator or ancestor relation would loop.
	ErrCycleDetected = graph.ErrCycleDetected
	// ErrCarrierNode indicates a carrier was passed where a client node is
	// required.
	ErrCarrierNode = graph.ErrCarrierNode
	// ErrInvalidPotency indicates a negative potency.
	ErrInvalidPotency = errors.New("clabject: potency must be non-negative")
	// ErrInvalidKind indicates a declaration kind other than property or method.
	ErrInvalidKind = errors.New("clabject: kind must be property or method")
	// ErrNameRequired indicates an empty feature name.
	ErrNameRequired = errors.New("clabject: feature name must be provided")
	// ErrNotFound is the negative result of a lookup.
	ErrNotFound = errors.New("clabject: feature not found")
	// ErrPropagationFailed indicates a subtree walk aborted; no resolved
	// ancestor list was changed.
	ErrPropagationFailed = errors.New("clabject: propagation failed")
	// ErrNotMethod indicates Invoke resolved a feature that is not an
	// expression method.
	ErrNotMethod = errors.New("clabject: feature is not a method")
	// ErrNoEvaluator indicates no evaluator is available for a method.
	ErrNoEvaluator = errors.New("clabject: evaluator not configured")
)

// PropagationError reports where a propagation walk failed.
type PropagationError struct {
	Origin NodeID
	Node   NodeID
	Err    error
}

func (e *PropagationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("clabject: propagation from %s failed at %s: %v", e.Origin, e.Node, e.Err)
}

func (e *PropagationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrPropagationFailed) match any PropagationError.
func (e *PropagationError) Is(target error) bool {
	return target == ErrPropagationFailed
}

func wrapPropagationError(origin, node NodeID, err error) error {
	if err == nil {
		return nil
	}
	var propErr *PropagationError
	if errors.As(err, &propErr) {
		return err
	}
	return &PropagationError{Origin: origin, Node: node, Err: err}
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Site   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("clabject: %s evaluator %s site=%s: %v", e.Engine, describeExpression(e.Expr), e.Site, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "clabject:") {
		return err
	}
	return fmt.Errorf("clabject: %s evaluator: %w", engine, err)
}

// wrapEvaluationError fills missing metadata on an existing EvaluationError
// or wraps err in a new one.
func wrapEvaluationError(engine, expr, site string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Site == "" {
			evalErr.Site = site
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Site:   site,
		Err:    err,
	}
}
