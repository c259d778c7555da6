package schema

const (
	MethodInitialize      = "initialize"
	MethodPing            = "ping"
	MethodToolsList       = "tools/list"
	MethodToolsCall       = "tools/call"
	MethodLoggingSetLevel = "logging/setLevel"

	MethodNotificationInitialized = "notifications/initialized"
	MethodNotificationCancel      = "notifications/cancelled"
	MethodNotificationMessage     = "notifications/message"
)

// LatestProtocolVersion is the MCP protocol revision this server negotiates.
const LatestProtocolVersion = "2025-03-26"
