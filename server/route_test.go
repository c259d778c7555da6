package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	testCases := []struct {
		description  string
		httpMethod   string
		hasSession   bool
		sessionKnown bool
		kind         bodyKind
		rpcMethod    string
		expect       routeAction
	}{
		{
			description: "initialize opens a session without a header",
			httpMethod:  http.MethodPost,
			kind:        bodyRequest,
			rpcMethod:   "initialize",
			expect:      actionInitialize,
		},
		{
			description:  "initialize with a stale header still opens a fresh session",
			httpMethod:   http.MethodPost,
			hasSession:   true,
			sessionKnown: false,
			kind:         bodyRequest,
			rpcMethod:    "initialize",
			expect:       actionInitialize,
		},
		{
			description:  "initialize on a live session dispatches to it",
			httpMethod:   http.MethodPost,
			hasSession:   true,
			sessionKnown: true,
			kind:         bodyRequest,
			rpcMethod:    "initialize",
			expect:       actionDispatch,
		},
		{
			description: "request without a session must initialize first",
			httpMethod:  http.MethodPost,
			kind:        bodyRequest,
			rpcMethod:   "tools/list",
			expect:      actionRequireSession,
		},
		{
			description:  "request with an unknown session must initialize first",
			httpMethod:   http.MethodPost,
			hasSession:   true,
			sessionKnown: false,
			kind:         bodyRequest,
			rpcMethod:    "tools/call",
			expect:       actionRequireSession,
		},
		{
			description:  "request on a live session dispatches",
			httpMethod:   http.MethodPost,
			hasSession:   true,
			sessionKnown: true,
			kind:         bodyRequest,
			rpcMethod:    "tools/call",
			expect:       actionDispatch,
		},
		{
			description:  "notification on a live session is accepted",
			httpMethod:   http.MethodPost,
			hasSession:   true,
			sessionKnown: true,
			kind:         bodyNotification,
			rpcMethod:    "notifications/initialized",
			expect:       actionNotify,
		},
		{
			description: "garbage body is a parse error",
			httpMethod:  http.MethodPost,
			kind:        bodyInvalid,
			expect:      actionParseError,
		},
		{
			description: "stream without a session must initialize first",
			httpMethod:  http.MethodGet,
			expect:      actionRequireSession,
		},
		{
			description:  "stream with an unknown session must initialize first",
			httpMethod:   http.MethodGet,
			hasSession:   true,
			sessionKnown: false,
			expect:       actionRequireSession,
		},
		{
			description:  "stream on a live session attaches",
			httpMethod:   http.MethodGet,
			hasSession:   true,
			sessionKnown: true,
			expect:       actionAttachStream,
		},
		{
			description: "delete without a session must initialize first",
			httpMethod:  http.MethodDelete,
			expect:      actionRequireSession,
		},
		{
			description:  "delete of an unknown session is not found",
			httpMethod:   http.MethodDelete,
			hasSession:   true,
			sessionKnown: false,
			expect:       actionSessionNotFound,
		},
		{
			description:  "delete of a live session closes it",
			httpMethod:   http.MethodDelete,
			hasSession:   true,
			sessionKnown: true,
			expect:       actionCloseSession,
		},
		{
			description: "unsupported method is rejected",
			httpMethod:  http.MethodPut,
			expect:      actionReject,
		},
	}

	for _, testCase := range testCases {
		actual := route(testCase.httpMethod, testCase.hasSession, testCase.sessionKnown, testCase.kind, testCase.rpcMethod)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestClassifyBody(t *testing.T) {
	kind, probe := classifyBody([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	assert.Equal(t, bodyRequest, kind)
	assert.Equal(t, "initialize", probe.Method)

	kind, probe = classifyBody([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Equal(t, bodyNotification, kind)
	assert.Equal(t, "notifications/initialized", probe.Method)

	kind, _ = classifyBody([]byte(`{"jsonrpc":"2.0","id":null,"method":"notifications/cancelled"}`))
	assert.Equal(t, bodyNotification, kind)

	kind, _ = classifyBody([]byte(`not json`))
	assert.Equal(t, bodyInvalid, kind)

	kind, _ = classifyBody([]byte(`{"jsonrpc":"2.0","id":1}`))
	assert.Equal(t, bodyInvalid, kind)
}
