// Package logging constructs the process-wide zap logger. It is built once
// at server startup and handed to collaborators explicitly rather than
// referenced through a package-level global.
package logging

import "go.uber.org/zap"

func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
