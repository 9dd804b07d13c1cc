// Package logging wraps zap with the node's logging conventions: one
// *zap.SugaredLogger per component, tagged the same way the bracketed
// "[component] message" log lines elsewhere in this codebase's lineage
// were tagged, but as a structured field instead of a string prefix.
package logging

import (
	"go.uber.org/zap"
)

// New builds the base logger for the process: JSON in production,
// console-encoded and more verbose in development.
func New(development bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Named returns a child logger tagged with component, e.g.
// Named(base, "ledger") for messages from the ledger package. Replaces
// the "[ledger] ..." string-prefix convention with a structured field
// while keeping the same grouping at read time.
func Named(base *zap.SugaredLogger, component string) *zap.SugaredLogger {
	return base.Named(component)
}
