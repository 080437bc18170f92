package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTriggerTopics(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "opening hours question",
			body: "What time do you open tomorrow?",
			want: []string{"opening_hours"},
		},
		{
			name: "weather and events",
			body: "Will it rain during the race on Saturday?",
			want: []string{"weather", "events"},
		},
		{
			name: "price inquiry",
			body: "How much does the jersey cost?",
			want: []string{"stock_price"},
		},
		{
			name: "no triggers",
			body: "Thanks so much for the great service!",
			want: []string{},
		},
		{
			name: "empty body",
			body: "",
			want: []string{},
		},
		{
			name: "coincidental substring still triggers",
			body: "I love the priceless view from your shop",
			want: []string{"stock_price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTriggerTopics(tt.body))
		})
	}
}

func TestMatchTriggerTopicsCaseInsensitive(t *testing.T) {
	bodies := []string{
		"What time do you open tomorrow?",
		"Is the new frame in stock? What does it cost in AUD?",
		"weather forecast for the holiday hours please",
	}
	for _, body := range bodies {
		assert.Equal(t, MatchTriggerTopics(body), MatchTriggerTopics(strings.ToUpper(body)), body)
	}
}

func TestRenderTopicList(t *testing.T) {
	assert.Equal(t, "none", RenderTopicList(nil))
	assert.Equal(t, "none", RenderTopicList([]string{}))
	assert.Equal(t, "• weather", RenderTopicList([]string{"weather"}))
	assert.Equal(t, "• weather\n• currency", RenderTopicList([]string{"weather", "currency"}))
}
