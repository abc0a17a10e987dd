// Package logger provides structured logging for plugwire using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Fields are passed as maps so call sites read
// the same whether they log a module load or a registration decision.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("registrar")
//	log.Info("service registered", logger.Fields("contract", "Greeter"))
package logger
