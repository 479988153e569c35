package ctxutil

import "context"

type traceDataKey struct{}

// TraceData is the correlation pair that follows a request through the
// HTTP layer and into job payloads, so worker logs line up with the API
// call that enqueued the job.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns key/value pairs for the sugared logger, skipping
// whatever is unset. Nil-safe.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var fields []interface{}
	if td.TraceID != "" {
		fields = append(fields, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		fields = append(fields, "request_id", td.RequestID)
	}
	return fields
}
