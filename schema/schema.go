package schema

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities advertises the capability surface of this server.
type ServerCapabilities struct {
	Tools   *ServerCapabilitiesTools `json:"tools,omitempty"`
	Logging map[string]interface{}   `json:"logging,omitempty"`
}

type ServerCapabilitiesTools struct {
	ListChanged *bool `json:"listChanged,omitempty"`
}

// ClientCapabilities mirrors the capability set a client advertises at
// initialization. Only presence matters to this server.
type ClientCapabilities struct {
	Roots       map[string]interface{} `json:"roots,omitempty"`
	Sampling    map[string]interface{} `json:"sampling,omitempty"`
	Elicitation map[string]interface{} `json:"elicitation,omitempty"`
}

type InitializeRequestParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	Capabilities    *ClientCapabilities `json:"capabilities,omitempty"`
	ClientInfo      *Implementation     `json:"clientInfo,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    *string            `json:"instructions,omitempty"`
}

// Tool describes one invocable operation.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

type CallToolRequestParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type CallToolResult struct {
	Content []CallToolResultContentElem `json:"content"`
	IsError *bool                       `json:"isError,omitempty"`
}

type CallToolResultContentElem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextResult wraps a text report into a tool call result.
func NewTextResult(text string) *CallToolResult {
	return &CallToolResult{Content: []CallToolResultContentElem{{Type: "text", Text: text}}}
}

type SetLevelRequestParams struct {
	Level LoggingLevel `json:"level"`
}

type LoggingMessageNotificationParams struct {
	Level  LoggingLevel `json:"level"`
	Logger *string      `json:"logger,omitempty"`
	Data   interface{}  `json:"data"`
}
