// Package temporal bridges the service's zap logging into the Temporal SDK
// so worker and client output lands in the same stream as everything else.
package temporal

import (
	"fmt"
	"reflect"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

type zapAdapter struct {
	base *zap.Logger
}

// NewZapAdapter wraps a zap logger for use as the Temporal client logger.
func NewZapAdapter(base *zap.Logger) log.Logger {
	return &zapAdapter{base: base}
}

func (a *zapAdapter) Debug(msg string, keyvals ...interface{}) {
	a.base.Debug(msg, toFields(keyvals)...)
}

func (a *zapAdapter) Info(msg string, keyvals ...interface{}) {
	a.base.Info(msg, toFields(keyvals)...)
}

func (a *zapAdapter) Warn(msg string, keyvals ...interface{}) {
	a.base.Warn(msg, toFields(keyvals)...)
}

func (a *zapAdapter) Error(msg string, keyvals ...interface{}) {
	a.base.Error(msg, toFields(keyvals)...)
}

// With satisfies log.Logger; the SDK uses it to attach workflow metadata.
func (a *zapAdapter) With(keyvals ...interface{}) log.Logger {
	return &zapAdapter{base: a.base.With(toFields(keyvals)...)}
}

// toFields converts the SDK's alternating key/value slice. Non-string keys
// and a trailing unpaired value are skipped.
func toFields(keyvals []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, toField(key, keyvals[i+1]))
	}
	return fields
}

// toField builds one zap field. The SDK occasionally hands over values
// zap.Any cannot serialize (funcs, channels); those become placeholder
// strings instead of panicking inside the logger.
func toField(key string, val interface{}) (field zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			field = zap.String(key, fmt.Sprintf("<unserializable: %v>", r))
		}
	}()

	if val == nil {
		return zap.String(key, "<nil>")
	}
	switch reflect.ValueOf(val).Kind() {
	case reflect.Func:
		return zap.String(key, "<func>")
	case reflect.Chan:
		return zap.String(key, "<chan>")
	case reflect.UnsafePointer:
		return zap.String(key, "<unsafe.Pointer>")
	case reflect.Invalid:
		return zap.String(key, "<invalid>")
	default:
		return zap.Any(key, val)
	}
}
