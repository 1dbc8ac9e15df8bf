package ecsc

// DefaultRootEvent is the event the generated program starts from when no
// other root event is configured.
const DefaultRootEvent = "start"

// Option describes a function used to configure a build.
type Option func(*config)

type config struct {
	rootEvent  string
	dataOrigin int
	codeOrigin int
	comment    string
}

func newConfig(opts ...Option) *config {
	cfg := &config{rootEvent: DefaultRootEvent}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRootEvent sets the event the generated program starts from.
func WithRootEvent(event string) Option {
	return func(cfg *config) {
		cfg.rootEvent = event
	}
}

// WithDataOrigin sets the base address of the mutable segment.
func WithDataOrigin(origin int) Option {
	return func(cfg *config) {
		cfg.dataOrigin = origin
	}
}

// WithCodeOrigin sets the base address of the code segment.
func WithCodeOrigin(origin int) Option {
	return func(cfg *config) {
		cfg.codeOrigin = origin
	}
}

// WithHeaderComment adds a leading comment line to the emitted document.
func WithHeaderComment(comment string) Option {
	return func(cfg *config) {
		cfg.comment = comment
	}
}
