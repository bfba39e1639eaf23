// Package logger provides structured logging for sessionkit using zerolog.
//
// It supports JSON and console output, level configuration from config or
// environment, and component-scoped loggers kept in a named registry.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("session")
//	log.Debug("request completed", logger.Fields("path", "/api/jobs", "status", 200))
package logger
