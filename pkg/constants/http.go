package constants

// HTTP headers
const (
	HeaderAuthorization = "Authorization"
)

// Gin context keys
const (
	ContextKeyActor = "actor"
	ContextKeyToken = "token"
)

// Standard JSON response fields
const (
	ResponseError = "error"
	FieldMessage  = "message"
)
