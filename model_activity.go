package clabject

import "github.com/goliatone/go-clabject/pkg/activity"

// WithActivityHooks attaches activity hooks notified after every successful
// mutation. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *modelConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig sets emission defaults (enabled flag, channel, actor,
// tenant) applied to events that leave them empty.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *modelConfig) {
		cfg.activityConfig = config
	}
}

// ActivityHooks returns a cloned slice of the configured activity hooks. The
// returned slice can be safely mutated by the caller.
func (m *Model) ActivityHooks() activity.Hooks {
	if m == nil {
		return nil
	}
	return m.cfg.activityHooks.Clone()
}
