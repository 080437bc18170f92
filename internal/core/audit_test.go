package core

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func webCall(query, result string) ToolInvocation {
	args := map[string]any{}
	if query != "" {
		args["query"] = query
	}
	return ToolInvocation{ToolName: WebSearchToolName, Arguments: args, ResultText: result}
}

func TestAuditToolCallsNoSearches(t *testing.T) {
	audit := AuditToolCalls(ExecutionTrace{})
	assert.False(t, audit.SearchUsed)
	assert.Equal(t, ReasonContextSufficient, audit.SearchReason)
	assert.Nil(t, audit.WebSearchResults)
}

func TestAuditToolCallsIgnoresOtherTools(t *testing.T) {
	trace := ExecutionTrace{
		ToolCalls: []ToolInvocation{
			{ToolName: "calculator", Arguments: map[string]any{"expr": "1+1"}},
		},
	}
	audit := AuditToolCalls(trace)
	assert.False(t, audit.SearchUsed)
	assert.Equal(t, ReasonContextSufficient, audit.SearchReason)
}

func TestAuditToolCallsFlatTrace(t *testing.T) {
	trace := ExecutionTrace{
		ToolCalls: []ToolInvocation{
			webCall("melbourne weather saturday", "Sunny, 24C"),
			webCall("store opening hours", "Open 9-5"),
		},
	}
	audit := AuditToolCalls(trace)
	assert.True(t, audit.SearchUsed)
	assert.Equal(t, "melbourne weather saturday; store opening hours", audit.SearchReason)
	assert.Len(t, audit.WebSearchResults, 2)
	assert.Equal(t, "Sunny, 24C", audit.WebSearchResults[0].Result)
}

func TestAuditToolCallsNestedTrace(t *testing.T) {
	trace := ExecutionTrace{
		Steps: []TraceStep{
			{ToolCalls: []ToolInvocation{webCall("aud exchange rate", "1 AUD = 0.65 USD")}},
			{},
			{ToolCalls: []ToolInvocation{webCall("public holiday victoria", "Labour Day")}},
		},
	}
	audit := AuditToolCalls(trace)
	assert.True(t, audit.SearchUsed)
	assert.Equal(t, "aud exchange rate; public holiday victoria", audit.SearchReason)
	assert.Len(t, audit.WebSearchResults, 2)
}

func TestAuditToolCallsMixedShapes(t *testing.T) {
	trace := ExecutionTrace{
		ToolCalls: []ToolInvocation{webCall("first", "a")},
		Steps: []TraceStep{
			{ToolCalls: []ToolInvocation{webCall("second", "b")}},
		},
	}
	audit := AuditToolCalls(trace)
	assert.Equal(t, "first; second", audit.SearchReason)
}

func TestAuditToolCallsMissingQuery(t *testing.T) {
	trace := ExecutionTrace{
		ToolCalls: []ToolInvocation{webCall("", "something")},
	}
	audit := AuditToolCalls(trace)
	assert.True(t, audit.SearchUsed)
	assert.Equal(t, "<no_query>", audit.SearchReason)
}

func TestAuditToolCallsTruncatesResults(t *testing.T) {
	long := strings.Repeat("x", 2000)
	trace := ExecutionTrace{
		ToolCalls: []ToolInvocation{webCall("q", long)},
	}
	audit := AuditToolCalls(trace)
	assert.Len(t, audit.WebSearchResults, 1)
	assert.Len(t, audit.WebSearchResults[0].Result, 500)
}

func TestAuditToolCallsTruncatesOnRuneBoundary(t *testing.T) {
	// A multi-byte rune straddling the cap must be dropped whole, not
	// split into invalid bytes
	long := strings.Repeat("x", 499) + "é" + strings.Repeat("y", 100)
	trace := ExecutionTrace{
		ToolCalls: []ToolInvocation{webCall("q", long)},
	}
	audit := AuditToolCalls(trace)
	got := audit.WebSearchResults[0].Result
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("x", 499), got)
}
