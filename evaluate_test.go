package clabject

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newPricedModel(t *testing.T, opts ...Option) (*Model, NodeID, NodeID) {
	t.Helper()
	m := newTestModel(opts...)
	product := mustCreate(t, m, "Product", m.Root())
	mustDeclare(t, m, product, "price", KindProperty, 2, 10)
	book := mustCreate(t, m, "Book", product)
	item := mustCreate(t, m, "Dune", book)
	return m, book, item
}

func TestInvokeUsesExprByDefault(t *testing.T) {
	m, book, item := newPricedModel(t)
	mustDeclare(t, m, book, "total", KindMethod, 1, "price * args.qty")

	got, err := m.Invoke(item, "total", map[string]any{"qty": 3})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got != 30 {
		t.Fatalf("expected 30, got %#v", got)
	}
}

func TestInvokeHonoursEngineHint(t *testing.T) {
	m, book, item := newPricedModel(t)
	mustDeclare(t, m, book, "double", KindMethod, 1, Method{Expr: "price * 2", Engine: EngineCEL})
	mustDeclare(t, m, book, "triple", KindMethod, 1, &Method{Expr: "price * 3"})

	got, err := m.Invoke(item, "double", nil)
	if err != nil {
		t.Fatalf("invoke cel: %v", err)
	}
	if got != int64(20) {
		t.Fatalf("expected int64(20) from cel, got %#v", got)
	}
	got, err = m.Invoke(item, "triple", nil)
	if err != nil {
		t.Fatalf("invoke expr: %v", err)
	}
	if got != 30 {
		t.Fatalf("expected 30 from expr, got %#v", got)
	}
}

func TestInvokeWithEngineOption(t *testing.T) {
	m, book, item := newPricedModel(t, WithEngine("CEL"))
	mustDeclare(t, m, book, "next", KindMethod, 1, "price + 1")

	got, err := m.Invoke(item, "next", nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got != int64(11) {
		t.Fatalf("expected int64(11), got %#v", got)
	}
}

func TestInvokeBindsSelf(t *testing.T) {
	m, book, item := newPricedModel(t)
	mustDeclare(t, m, book, "label", KindMethod, 1, `self.feature + "@" + self.id`)

	got, err := m.Invoke(item, "label", nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if want := "label@" + string(item); got != want {
		t.Fatalf("expected %q, got %#v", want, got)
	}
}

func TestInvokeRejectsNonMethods(t *testing.T) {
	m, book, item := newPricedModel(t)
	mustDeclare(t, m, book, "blank", KindMethod, 1, "  ")
	mustDeclare(t, m, book, "numeric", KindMethod, 1, 42)

	for _, name := range []string{"price", "blank", "numeric"} {
		if _, err := m.Invoke(item, name, nil); !errors.Is(err, ErrNotMethod) {
			t.Fatalf("%s: expected ErrNotMethod, got %v", name, err)
		}
	}
	if _, err := m.Invoke(book, "price", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected latent method lookup to fail, got %v", err)
	}
}

func TestInvokeUnknownEngine(t *testing.T) {
	m, book, item := newPricedModel(t)
	mustDeclare(t, m, book, "script", KindMethod, 1, Method{Expr: "1", Engine: "lua"})

	if _, err := m.Invoke(item, "script", nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestInvokeReportsEvaluationSite(t *testing.T) {
	var (
		mu     sync.Mutex
		events []LogEvent
	)
	logger := LoggerFunc(func(event LogEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	m, book, item := newPricedModel(t, WithLogger(logger))
	mustDeclare(t, m, book, "broken", KindMethod, 1, "price +")

	_, err := m.Invoke(item, "broken", nil)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %T (%v)", err, err)
	}
	if evalErr.Engine != EngineExpr || evalErr.Expr != "price +" || evalErr.Site != string(item)+"/broken" {
		t.Fatalf("unexpected evaluation error %+v", evalErr)
	}

	mu.Lock()
	defer mu.Unlock()
	last := events[len(events)-1]
	if last.Op != OpEvaluate || last.Engine != EngineExpr || last.Err == nil {
		t.Fatalf("expected a failed evaluate event, got %+v", last)
	}
}

func TestInvokeWithCustomFunctionsAndCache(t *testing.T) {
	double := func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("double expects one argument, got %d", len(args))
		}
		switch value := args[0].(type) {
		case int:
			return value * 2, nil
		case int64:
			return value * 2, nil
		default:
			return nil, fmt.Errorf("double: unsupported %T", args[0])
		}
	}
	cache := NewMemoryProgramCache()
	m, book, item := newPricedModel(t, WithCustomFunction("double", double), WithProgramCache(cache))
	mustDeclare(t, m, book, "doubled", KindMethod, 1, "double(price)")
	mustDeclare(t, m, book, "celDoubled", KindMethod, 1, Method{Expr: `call("double", price)`, Engine: EngineCEL})

	got, err := m.Invoke(item, "doubled", nil)
	if err != nil {
		t.Fatalf("invoke expr: %v", err)
	}
	if got != 20 {
		t.Fatalf("expected 20, got %#v", got)
	}
	got, err = m.Invoke(item, "celDoubled", nil)
	if err != nil {
		t.Fatalf("invoke cel: %v", err)
	}
	if got != int64(20) {
		t.Fatalf("expected int64(20), got %#v", got)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected one cached program per engine, got %d", cache.Len())
	}
	if _, err := m.Invoke(item, "doubled", nil); err != nil {
		t.Fatalf("invoke from cache: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected cached program reuse, got %d entries", cache.Len())
	}
}

type featureEchoEvaluator struct{}

func (featureEchoEvaluator) Evaluate(ctx RuleContext, expr string) (any, error) {
	return ctx.Feature + ":" + expr, nil
}

func (featureEchoEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, errors.New("not supported")
}

func TestInvokeWithCustomEvaluator(t *testing.T) {
	var engines []string
	logger := LoggerFunc(func(event LogEvent) {
		if event.Op == OpEvaluate {
			engines = append(engines, event.Engine)
		}
	})
	m, book, item := newPricedModel(t, WithEvaluator(featureEchoEvaluator{}), WithLogger(logger))
	mustDeclare(t, m, book, "echo", KindMethod, 1, "anything")
	mustDeclare(t, m, book, "pinned", KindMethod, 1, Method{Expr: "price", Engine: EngineExpr})

	got, err := m.Invoke(item, "echo", nil)
	if err != nil || got != "echo:anything" {
		t.Fatalf("expected custom evaluator, got %#v (%v)", got, err)
	}
	got, err = m.Invoke(item, "pinned", nil)
	if err != nil || got != 10 {
		t.Fatalf("expected engine hint to bypass the custom evaluator, got %#v (%v)", got, err)
	}
	if len(engines) != 2 || engines[0] != "custom" || engines[1] != EngineExpr {
		t.Fatalf("unexpected engines %v", engines)
	}
}
