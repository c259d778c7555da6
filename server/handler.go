package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"

	"github.com/ezbizservices/seo-mcp/internal/collection"
	"github.com/ezbizservices/seo-mcp/schema"
	"github.com/ezbizservices/seo-mcp/server/auth"
)

// Handler dispatches the JSON-RPC messages of one session.
type Handler struct {
	transport.Notifier
	*Logger
	*Server
	clientInitialize *schema.InitializeRequestParams
	loggingLevel     schema.LoggingLevel
	activeContexts   *collection.SyncMap[string, *activeContext]
	Initialized      bool
}

func (s *Server) newHandler(notifier transport.Notifier) *Handler {
	handler := &Handler{
		Server:         s,
		Notifier:       notifier,
		loggingLevel:   schema.LoggingLevelInfo,
		activeContexts: collection.NewSyncMap[string, *activeContext](),
	}
	handler.Logger = NewLogger(s.loggerName, &handler.loggingLevel, notifier)
	return handler
}

// Serve handles incoming JSON-RPC requests
func (h *Handler) Serve(parent context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	// Check for valid JSONRPC version
	if jsonrpc.Version != request.Jsonrpc {
		response.Error = jsonrpc.NewInvalidRequest("invalid JSON-RPC version", nil)
		return
	}

	// Keyed by the raw id so concurrent requests with distinct string ids
	// never share a cancellation slot.
	id := requestKey(request.Id)
	ctx, cancel := context.WithCancel(parent)
	h.activeContexts.Put(id, newActiveContext(ctx, cancel))
	defer h.cancelOperation(id)

	switch request.Method {
	case schema.MethodInitialize:
		result, err := h.Initialize(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodPing:
		h.setResponse(response, map[string]interface{}{}, nil)
	case schema.MethodToolsList:
		result, err := h.ListTools(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodToolsCall:
		result, err := h.CallTool(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodLoggingSetLevel:
		result, err := h.SetLevel(ctx, request)
		h.setResponse(response, result, err)
	default:
		response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), request.Params)
	}
}

func (h *Handler) setResponse(response *jsonrpc.Response, result interface{}, rpcError *jsonrpc.Error) {
	if rpcError != nil {
		response.Error = rpcError
		return
	}
	var err error
	response.Result, err = json.Marshal(result)
	if err != nil {
		response.Error = jsonrpc.NewInternalError(err.Error(), []byte{})
	}
}

// OnNotification handles incoming JSON-RPC notifications
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	switch notification.Method {
	case schema.MethodNotificationInitialized:
		h.Initialized = true
	case schema.MethodNotificationCancel:
		h.cancel(ctx, notification)
	}
}

func (h *Handler) cancel(_ context.Context, notification *jsonrpc.Notification) {
	var params struct {
		RequestId interface{} `json:"requestId"`
	}
	if err := json.Unmarshal(notification.Params, &params); err != nil || params.RequestId == nil {
		return
	}
	h.cancelOperation(requestKey(params.RequestId))
}

func (h *Handler) cancelOperation(id string) {
	if active, ok := h.activeContexts.Get(id); ok {
		active.CancelFunc()
		h.activeContexts.Delete(id)
	}
}

// requestKey renders any JSON-RPC id (number or string) as a map key.
func requestKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// Initialize handles the initialize method
func (h *Handler) Initialize(_ context.Context, request *jsonrpc.Request) (*schema.InitializeResult, *jsonrpc.Error) {
	params := &schema.InitializeRequestParams{}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, params); err != nil {
			return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse %v", err), request.Params)
		}
	}
	h.clientInitialize = params
	listChanged := false
	result := schema.InitializeResult{
		ProtocolVersion: h.protocolVersion,
		ServerInfo:      h.info,
		Capabilities: schema.ServerCapabilities{
			Tools:   &schema.ServerCapabilitiesTools{ListChanged: &listChanged},
			Logging: map[string]interface{}{},
		},
		Instructions: h.instructions,
	}
	return &result, nil
}

// ListTools handles the tools/list method
func (h *Handler) ListTools(_ context.Context, _ *jsonrpc.Request) (*schema.ListToolsResult, *jsonrpc.Error) {
	return &schema.ListToolsResult{Tools: h.tools.List()}, nil
}

// CallTool handles the tools/call method. The entitlement decision is made
// against the tier frozen into the session at creation; a declined
// capability is answered as a successful call carrying an upgrade message,
// and usage is recorded only for permitted calls.
func (h *Handler) CallTool(ctx context.Context, request *jsonrpc.Request) (*schema.CallToolResult, *jsonrpc.Error) {
	params := &schema.CallToolRequestParams{}
	if err := json.Unmarshal(request.Params, params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	definition, ok := h.tools.Get(params.Name)
	if !ok {
		return nil, schema.NewUnknownTool(params.Name)
	}

	tier := auth.TierFree
	credential := ""
	if call, ok := callAuthFrom(ctx); ok {
		tier = call.Tier
		credential = call.Credential
	}
	if !auth.CapabilityAllowed(tier, params.Name) {
		return schema.NewTextResult(h.upgradeMessage(params.Name)), nil
	}
	if credential != "" {
		// Best effort: a usage write failure must never fail the call.
		if err := h.gate.RecordUsage(ctx, credential); err != nil {
			h.logger.Warn("usage recording failed", "tool", params.Name, "error", err)
		}
	}

	_ = h.Logger.Debug(ctx, map[string]interface{}{"tool": params.Name, "event": "started"})
	result, err := definition.Handle(ctx, params.Arguments)
	if err != nil {
		_ = h.Logger.Error(ctx, map[string]interface{}{"tool": params.Name, "error": err.Error()})
		isError := true
		return &schema.CallToolResult{
			Content: []schema.CallToolResultContentElem{{Type: "text", Text: err.Error()}},
			IsError: &isError,
		}, nil
	}
	_ = h.Logger.Info(ctx, map[string]interface{}{"tool": params.Name, "event": "completed"})
	return result, nil
}

// SetLevel handles the logging/setLevel method
func (h *Handler) SetLevel(_ context.Context, request *jsonrpc.Request) (map[string]interface{}, *jsonrpc.Error) {
	params := &schema.SetLevelRequestParams{}
	if err := json.Unmarshal(request.Params, params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	if !params.Level.Valid() {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("unknown logging level: %v", params.Level), request.Params)
	}
	h.loggingLevel = params.Level
	return map[string]interface{}{}, nil
}
