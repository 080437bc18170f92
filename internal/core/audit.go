package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// WebSearchToolName is the tool identifier the auditor accounts for
	WebSearchToolName = "web_search"

	// ReasonContextSufficient is recorded when the Responder stage made no
	// web_search calls
	ReasonContextSufficient = "Context sufficient"

	// missingQueryPlaceholder stands in for an invocation whose query
	// argument was absent or empty
	missingQueryPlaceholder = "<no_query>"

	// maxResultChars caps each captured search result in the audit record
	maxResultChars = 500
)

// FlattenTrace normalizes an execution trace into one ordered sequence
// of tool invocations. Backends expose invocations either directly or
// nested inside per-turn steps; both shapes collapse here and the
// variance never leaks further.
func FlattenTrace(trace ExecutionTrace) []ToolInvocation {
	calls := make([]ToolInvocation, 0, len(trace.ToolCalls))
	calls = append(calls, trace.ToolCalls...)
	for _, step := range trace.Steps {
		calls = append(calls, step.ToolCalls...)
	}
	return calls
}

// AuditToolCalls inspects the Responder stage's trace and summarizes its
// web-search activity. It is an observability capture only: it reports
// what happened and never verifies that triggered topics were covered.
func AuditToolCalls(trace ExecutionTrace) AuditResult {
	var results []WebSearchResult
	for _, tc := range FlattenTrace(trace) {
		if tc.ToolName != WebSearchToolName {
			continue
		}
		query, _ := tc.Arguments["query"].(string)
		result := truncateResult(tc.ResultText)
		results = append(results, WebSearchResult{Query: query, Result: result})
	}

	if len(results) == 0 {
		return AuditResult{
			SearchUsed:   false,
			SearchReason: ReasonContextSufficient,
		}
	}

	queries := make([]string, len(results))
	for i, r := range results {
		if r.Query == "" {
			queries[i] = missingQueryPlaceholder
		} else {
			queries[i] = r.Query
		}
	}

	return AuditResult{
		SearchUsed:       true,
		SearchReason:     strings.Join(queries, "; "),
		WebSearchResults: results,
	}
}

// truncateResult caps a captured search result without splitting a
// multi-byte rune, so the record stays valid UTF-8 through persistence
func truncateResult(result string) string {
	if len(result) <= maxResultChars {
		return result
	}
	truncated := result[:maxResultChars]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}
