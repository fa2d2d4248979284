package clabject

import (
	"time"

	"github.com/goliatone/go-clabject/graph"
	"github.com/goliatone/go-clabject/pkg/activity"
)

// NodeID identifies a node (clabject) or carrier in a Model.
type NodeID = graph.ID

// DeclarationID identifies a single declaration.
type DeclarationID = graph.DeclarationID

// Declaration is a named feature with a potency, owned by the node that
// declared it.
type Declaration = graph.Declaration

// Kind classifies a declaration as a property or a method.
type Kind = graph.Kind

const (
	KindProperty = graph.KindProperty
	KindMethod   = graph.KindMethod
)

// NodeInfo is a read-only snapshot of one node. Owner and Potency are set
// for carriers only.
type NodeInfo struct {
	ID           NodeID        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Generator    NodeID        `json:"generator,omitempty"`
	Explicit     []NodeID      `json:"explicit,omitempty"`
	Resolved     []NodeID      `json:"resolved,omitempty"`
	Instances    []NodeID      `json:"instances,omitempty"`
	Depth        int           `json:"depth"`
	Carrier      bool          `json:"carrier,omitempty"`
	Owner        NodeID        `json:"owner,omitempty"`
	Potency      int           `json:"potency,omitempty"`
	Declarations []Declaration `json:"declarations,omitempty"`
}

// Method is a method payload naming the expression to run and, optionally,
// the engine to run it with ("expr", "cel" or "js"). A plain string payload
// is treated as a Method with the model's default engine.
type Method struct {
	Expr   string `json:"expr"`
	Engine string `json:"engine,omitempty"`
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument is a generated description of the concrete properties of a
// node, plus the features that produced them.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
	Node     NodeID
	Features []SchemaFeature
}

// SchemaFeature summarises one concrete feature included in a schema.
type SchemaFeature struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Potency int    `json:"potency"`
	Owner   NodeID `json:"owner"`
}

// SchemaGenerator transforms a property map into a schema document.
// Implementations must be safe for concurrent use.
type SchemaGenerator interface {
	Generate(value any) (SchemaDocument, error)
}

// RuleContext carries inputs needed when evaluating a method expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Node     NodeID
	Feature  string
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// label names the evaluation site for errors and logs.
func (ctx RuleContext) label() string {
	switch {
	case ctx.Node == "" && ctx.Feature == "":
		return "unknown"
	case ctx.Feature == "":
		return string(ctx.Node)
	default:
		return string(ctx.Node) + "/" + ctx.Feature
	}
}

func (ctx RuleContext) selfBinding() map[string]any {
	if ctx.Node == "" {
		return nil
	}
	return map[string]any{
		"id":      string(ctx.Node),
		"feature": ctx.Feature,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// Option configures a Model.
type Option func(*modelConfig)

type modelConfig struct {
	rootName        string
	idgen           func() string
	logger          Logger
	evaluator       Evaluator
	engine          string
	programCache    ProgramCache
	functions       *FunctionRegistry
	schemaGenerator SchemaGenerator
	activityHooks   activity.Hooks
	activityConfig  activity.Config
}

func applyOptions(opts []Option) modelConfig {
	cfg := modelConfig{
		rootName:       "Root",
		activityConfig: activity.Config{Enabled: true},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return cfg
}

// WithRootName labels the sentinel root node.
func WithRootName(name string) Option {
	return func(cfg *modelConfig) {
		if name != "" {
			cfg.rootName = name
		}
	}
}

// WithIDGenerator replaces the UUID generator used for node, carrier and
// declaration identifiers. Generated ids must be unique.
func WithIDGenerator(next func() string) Option {
	return func(cfg *modelConfig) {
		cfg.idgen = next
	}
}

// WithEvaluator configures the default evaluator used by Invoke.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *modelConfig) {
		cfg.evaluator = e
	}
}

// WithEngine selects a built-in default evaluator by name ("expr", "cel" or
// "js"). WithEvaluator takes precedence.
func WithEngine(name string) Option {
	return func(cfg *modelConfig) {
		cfg.engine = name
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *modelConfig) {
		cfg.schemaGenerator = generator
	}
}
