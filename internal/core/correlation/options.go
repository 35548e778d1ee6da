package correlation

// DefaultLoggingScopeKey is the log attribute key used for the correlation id
// unless configured otherwise.
const DefaultLoggingScopeKey = "CorrelationId"

// Options configures the manager/activity layer.
type Options struct {
	LoggingScopeKey string
}

// DefaultOptions returns Options with every field at its default.
func DefaultOptions() Options {
	return Options{LoggingScopeKey: DefaultLoggingScopeKey}
}

// ScopeKey returns the configured logging scope key or the default.
func (o Options) ScopeKey() string {
	if o.LoggingScopeKey == "" {
		return DefaultLoggingScopeKey
	}
	return o.LoggingScopeKey
}
