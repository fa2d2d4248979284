package clabject

import "time"

// Operation names reported in LogEvent.Op.
const (
	OpCreate    = "create"
	OpDeclare   = "declare"
	OpPropagate = "propagate"
	OpRefine    = "refine"
	OpEvaluate  = "evaluate"
	OpActivity  = "activity"
)

// LogEvent describes one model operation for logging.
type LogEvent struct {
	Op       string
	Node     NodeID
	Feature  string
	Potency  int
	Affected int
	Engine   string
	Duration time.Duration
	Err      error
}

// Logger records model events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// WithLogger attaches a logger to the model. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(cfg *modelConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
