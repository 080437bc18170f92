package core

import (
	"strings"
)

// triggerTopic maps a topic identifier to the substrings that activate it
type triggerTopic struct {
	Topic    string
	Keywords []string
}

// triggerTable is the fixed topic vocabulary. A topic listed here, once
// detected in the inbound text, obligates the Responder stage to run a
// live web lookup for it. Matching is plain substring containment on the
// lower-cased body, so coincidental substrings do trigger.
var triggerTable = []triggerTopic{
	{"weather", []string{"weather", "forecast", "temperature", "rain", "sunny", "wind"}},
	{"events", []string{"event", "race", "ride", "competition"}},
	{"opening_hours", []string{"opening hours", "open on", "store hours", "what time"}},
	{"stock_price", []string{"price", "cost", "discount", "how much"}},
	{"stock_availability", []string{"in stock", "availability", "available"}},
	{"public_holiday", []string{"public holiday", "holiday hours"}},
	{"currency", []string{"exchange rate", "currency", "convert", "in aud"}},
}

// MatchTriggerTopics scans the message body for trigger topics. The
// result preserves the table's order and is never nil.
func MatchTriggerTopics(body string) []string {
	lower := strings.ToLower(body)
	topics := []string{}
	for _, t := range triggerTable {
		for _, k := range t.Keywords {
			if strings.Contains(lower, k) {
				topics = append(topics, t.Topic)
				break
			}
		}
	}
	return topics
}

// RenderTopicList renders a trigger-topic set for prompting: a bullet
// list, or the literal "none" when the set is empty
func RenderTopicList(topics []string) string {
	if len(topics) == 0 {
		return "none"
	}
	lines := make([]string, len(topics))
	for i, t := range topics {
		lines[i] = "• " + t
	}
	return strings.Join(lines, "\n")
}
