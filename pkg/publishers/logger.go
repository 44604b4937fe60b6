package publishers

// Logger is the subset of the application logger publishers write to.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

func logDelivered(log Logger, typ, id string) {
	log.DebugObj(typ+" publisher delivered event", "publisher_"+typ+"_delivery", map[string]any{
		"publisher_id": id,
	})
}

func logFailed(log Logger, typ, id string, err error) {
	log.ErrorObj(typ+" publisher send failed", "publisher_"+typ+"_error", map[string]any{
		"publisher_id": id,
		"error":        err.Error(),
	})
}
