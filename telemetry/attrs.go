package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

func otelStringAttr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func toString(v any) string {
	return fmt.Sprintf("%v", v)
}

func kvToOtel(keyvals []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		if key == "" {
			continue
		}
		attrs = append(attrs, attribute.String(key, toString(keyvals[i+1])))
	}
	return attrs
}
