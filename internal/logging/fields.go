package logging

// Standardized attribute keys. Keep these stable; the console handler and
// tests key off them.
const (
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldImpact     = "impact"
	FieldJobID      = "job_id"
	FieldSourcePath = "source"
	FieldOutputPath = "output"
	FieldWatchDir   = "watch_dir"
)
