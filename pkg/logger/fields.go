package logger

import (
	"fmt"
	"strconv"
	"time"
)

// StringField returns a string field.
func StringField(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// IntField returns an int field.
func IntField(key string, value int) LogField {
	return LogField{Key: key, Value: strconv.Itoa(value)}
}

// Int64Field returns an int64 field.
func Int64Field(key string, value int64) LogField {
	return LogField{Key: key, Value: strconv.FormatInt(value, 10)}
}

// BoolField returns a bool field.
func BoolField(key string, value bool) LogField {
	return LogField{Key: key, Value: strconv.FormatBool(value)}
}

// DurationField returns a duration field rendered with time.Duration.String.
func DurationField(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// TimeField returns a time field in RFC3339.
func TimeField(key string, value time.Time) LogField {
	return LogField{Key: key, Value: value.Format(time.RFC3339)}
}

// ErrorField returns the conventional "error" field.
func ErrorField(err error) LogField {
	if err == nil {
		return LogField{Key: "error", Value: "<nil>"}
	}
	return LogField{Key: "error", Value: err.Error()}
}

// Field renders any value into a field.
func Field[T any](key string, value T) LogField {
	return LogField{Key: key, Value: render(value)}
}

func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case time.Duration:
		return x.String()
	case error:
		if x == nil {
			return "<nil>"
		}
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// CorrelationIDField returns the correlation ID field.
func CorrelationIDField(id string) LogField {
	return StringField(CorrelationIDFieldKey, id)
}

// HTTPMethodField returns the request method field.
func HTTPMethodField(method string) LogField {
	return StringField("http_method", method)
}

// HTTPPathField returns the request path field.
func HTTPPathField(path string) LogField {
	return StringField("http_path", path)
}

// HTTPStatusField returns the response status field.
func HTTPStatusField(status int) LogField {
	return IntField("http_status", status)
}

// ClientIPField returns the remote address field.
func ClientIPField(ip string) LogField {
	return StringField("client_ip", ip)
}
