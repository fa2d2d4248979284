package clabject

import (
	"fmt"
	"strings"
	"time"
)

// Invoke resolves the method name at node and evaluates its expression. The
// node's concrete properties are exposed as top-level variables, args under
// "args" and the call site under "self".
func (m *Model) Invoke(node NodeID, name string, args map[string]any) (any, error) {
	m.mu.RLock()
	decl, _, err := m.resolveLocked(node, name, false)
	var values map[string]any
	if err == nil {
		values, err = m.valuesLocked(node)
	}
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	method, err := methodOf(decl)
	if err != nil {
		return nil, err
	}
	evaluator, engine, err := m.evaluatorFor(method.Engine)
	if err != nil {
		return nil, err
	}

	ctx := RuleContext{
		Snapshot: values,
		Args:     args,
		Node:     node,
		Feature:  name,
	}.withDefaults()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, method.Expr)
	evalErr = wrapEvaluationError(engine, method.Expr, ctx.label(), evalErr)
	m.log(LogEvent{
		Op:       OpEvaluate,
		Node:     node,
		Feature:  name,
		Engine:   engine,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func methodOf(decl Declaration) (Method, error) {
	if decl.Kind != KindMethod {
		return Method{}, fmt.Errorf("%w: %q is a %s", ErrNotMethod, decl.Name, decl.Kind)
	}
	var method Method
	switch payload := decl.Payload.(type) {
	case string:
		method = Method{Expr: payload}
	case Method:
		method = payload
	case *Method:
		if payload != nil {
			method = *payload
		}
	default:
		return Method{}, fmt.Errorf("%w: %q has payload %T", ErrNotMethod, decl.Name, decl.Payload)
	}
	if strings.TrimSpace(method.Expr) == "" {
		return Method{}, fmt.Errorf("%w: %q has an empty expression", ErrNotMethod, decl.Name)
	}
	return method, nil
}

// evaluatorFor picks the evaluator for a method. An explicit engine hint
// selects a built-in engine; otherwise the configured evaluator is used,
// falling back to the configured engine name and finally expr.
func (m *Model) evaluatorFor(engine string) (Evaluator, string, error) {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		if m.cfg.evaluator != nil {
			return m.cfg.evaluator, evaluatorEngineName(m.cfg.evaluator), nil
		}
		engine = strings.ToLower(strings.TrimSpace(m.cfg.engine))
	}
	if engine == "" {
		engine = EngineExpr
	}

	m.evalMu.Lock()
	defer m.evalMu.Unlock()
	if evaluator, ok := m.evaluators[engine]; ok {
		return evaluator, engine, nil
	}
	evaluator := m.builtinEvaluator(engine)
	if evaluator == nil {
		return nil, engine, fmt.Errorf("%w: engine %q", ErrNoEvaluator, engine)
	}
	if m.evaluators == nil {
		m.evaluators = map[string]Evaluator{}
	}
	m.evaluators[engine] = evaluator
	return evaluator, engine, nil
}

func (m *Model) builtinEvaluator(engine string) Evaluator {
	cache, registry := m.cfg.programCache, m.cfg.functions
	switch engine {
	case EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry))
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
	default:
		return nil
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	default:
		if name := fmt.Sprintf("%T", e); name == "*clabject.jsEvaluator" {
			return EngineJS
		}
		return "custom"
	}
}
