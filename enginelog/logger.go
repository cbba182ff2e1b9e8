// Package enginelog provides the engine's component-scoped structured
// logger, backed by go-log so every engine instance's lifecycle
// transitions and failures land in one leveled, queryable stream.
package enginelog

import (
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("siliconpath")

// Debugw logs at debug level with the engine's correlation id attached.
func Debugw(correlationID, msg string, kv ...interface{}) {
	log.Debugw(msg, append([]interface{}{"engine", correlationID}, kv...)...)
}

// Infow logs at info level with the engine's correlation id attached.
func Infow(correlationID, msg string, kv ...interface{}) {
	log.Infow(msg, append([]interface{}{"engine", correlationID}, kv...)...)
}

// Warnw logs at warn level with the engine's correlation id attached.
func Warnw(correlationID, msg string, kv ...interface{}) {
	log.Warnw(msg, append([]interface{}{"engine", correlationID}, kv...)...)
}

// Errorw logs at error level with the engine's correlation id attached.
func Errorw(correlationID, msg string, kv ...interface{}) {
	log.Errorw(msg, append([]interface{}{"engine", correlationID}, kv...)...)
}
