// Package logger builds the process-wide zap logger.
package logger

import "go.uber.org/zap"

// New returns a development logger for env "dev" or "development" and a
// production JSON logger otherwise.  The result is also installed as the
// zap global.
func New(env string) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	switch env {
	case "dev", "development":
		log, err = zap.NewDevelopment()
	default:
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}
