package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldHouseholdID = "household_id"
	FieldCategory    = "category"
	FieldCO2eKg      = "co2e_kg"
	FieldAvgCO2eKg   = "avg_monthly_co2e_kg"
	FieldWindowFrom  = "window_from"
	FieldWindowTo    = "window_to"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)
