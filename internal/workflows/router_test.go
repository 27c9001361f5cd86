package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepscout-ai/deepscout/internal/activities"
)

func TestRouteTask(t *testing.T) {
	tests := []struct {
		name  string
		input TaskInput
		want  string
	}{
		{"default is research", TaskInput{Query: "q"}, TaskTypeResearch},
		{"explicit research", TaskInput{Query: "q", TaskType: "research"}, TaskTypeResearch},
		{"unknown type researches", TaskInput{Query: "q", TaskType: "banana"}, TaskTypeResearch},
		{"context qa with grounding", TaskInput{TaskType: "context_qa", GroundingContext: "some facts"}, TaskTypeContextQA},
		{"context qa without grounding falls back", TaskInput{TaskType: "context_qa"}, TaskTypeResearch},
		{"context qa with blank grounding falls back", TaskInput{TaskType: "context_qa", GroundingContext: "   "}, TaskTypeResearch},
		{"url summary with target", TaskInput{TaskType: "url_summary", TargetURL: "https://example.com"}, TaskTypeURLSummary},
		{"url summary without target falls back", TaskInput{TaskType: "url_summary"}, TaskTypeResearch},
		{"type is case insensitive", TaskInput{TaskType: "  Context_QA ", GroundingContext: "x"}, TaskTypeContextQA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routeTask(tt.input))
		})
	}
}

func TestNextLoopState(t *testing.T) {
	followUps := []activities.FollowUp{{Kind: activities.KindWeb, Query: "more"}}

	tests := []struct {
		name         string
		verdict      activities.ReflectionVerdict
		counter      int
		maxLoops     int
		wantFinalize bool
		wantCounter  int
	}{
		{"sufficient keeps counter", activities.ReflectionVerdict{IsSufficient: true}, 0, 3, true, 0},
		{"sufficient late keeps counter", activities.ReflectionVerdict{IsSufficient: true}, 2, 3, true, 2},
		{"insufficient advances and continues", activities.ReflectionVerdict{FollowUps: followUps}, 0, 3, false, 1},
		{"budget exhausted finalizes", activities.ReflectionVerdict{FollowUps: followUps}, 2, 3, true, 3},
		{"single loop budget finalizes immediately", activities.ReflectionVerdict{FollowUps: followUps}, 0, 1, true, 1},
		{"no follow-ups finalizes", activities.ReflectionVerdict{}, 0, 3, true, 1},
		{"parse failure finalizes via empty follow-ups", activities.ReflectionVerdict{ParseFailed: true}, 0, 3, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finalize, next := nextLoopState(tt.verdict, tt.counter, tt.maxLoops)
			assert.Equal(t, tt.wantFinalize, finalize)
			assert.Equal(t, tt.wantCounter, next)
		})
	}
}
