package types

// Notifier defines the interface for reporting update outcomes.
type Notifier interface {
	GetNames() []string                                              // Service names.
	SendUpdate(params UpdateParams, result *UpdateResult, err error) // Report an outcome.
	Close()                                                          // Flush and close.
}
