package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldRequestID = "request_id"
	FieldGroupID   = "group_id"
	FieldStationID = "station_id"
	FieldUserID    = "user_id"
)
