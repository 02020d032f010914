package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldWorkflowID is the workflow the current view is bound to
	FieldWorkflowID = "workflow_id"

	// FieldJobID is the backend job ID
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource names the update source (push, poll, recheck, seed)
	FieldSource = "source"
)

// Standard metric fields used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
