package enrich_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
)

func TestClassifyMessageType(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    enrich.MessageType
	}{
		{"fenced code block", "here it is:\n```go\nfmt.Println(1)\n```", enrich.MessageTypeCode},
		{"code keyword density", "func main() { if err != nil { return } }", enrich.MessageTypeCode},
		{"question mark", "Did the deploy finish?", enrich.MessageTypeQuestion},
		{"interrogative opening", "why is the build slow today", enrich.MessageTypeQuestion},
		{"reflection vocabulary", "looking back, I realize the pause changed me", enrich.MessageTypeReflection},
		{"emotional vocabulary", "I am so happy about the release", enrich.MessageTypeEmotional},
		{"plain statement", "the meeting moved to Tuesday", enrich.MessageTypeStatement},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, enrich.ClassifyMessageType(tc.content))
		})
	}
}

func TestClassifyMessageTypePriorityOrder(t *testing.T) {
	// Code wins over question, question wins over emotional.
	assert.Equal(t, enrich.MessageTypeCode,
		enrich.ClassifyMessageType("why does this fail?\n```go\nfunc f() {}\n```"))
	assert.Equal(t, enrich.MessageTypeQuestion,
		enrich.ClassifyMessageType("are you happy with the launch?"))
}

func TestClassifyUrgency(t *testing.T) {
	assert.Equal(t, enrich.UrgencyHigh, enrich.ClassifyUrgency("deploy is BLOCKED on the cert"))
	assert.Equal(t, enrich.UrgencyHigh, enrich.ClassifyUrgency("critical regression in prod"))
	assert.Equal(t, enrich.UrgencyMedium, enrich.ClassifyUrgency("remember to renew the domain"))
	assert.Equal(t, enrich.UrgencyLow, enrich.ClassifyUrgency("the sky was clear"))
}

func TestCollectTags(t *testing.T) {
	tags := enrich.CollectTags("remember the launch deploy for the agent")
	assert.Equal(t, []string{"agents", "memory", "project", "technical"}, tags)

	assert.Empty(t, enrich.CollectTags("an unremarkable sentence"))
}

func TestCollectTagsDeterministic(t *testing.T) {
	content := "I feel the memory of the launch code"
	first := enrich.CollectTags(content)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, enrich.CollectTags(content))
	}
}

func TestBucketTimeOfDay(t *testing.T) {
	testCases := []struct {
		hour int
		want enrich.TimeOfDay
	}{
		{4, enrich.TimeNight},
		{5, enrich.TimeMorning},
		{11, enrich.TimeMorning},
		{12, enrich.TimeAfternoon},
		{16, enrich.TimeAfternoon},
		{17, enrich.TimeEvening},
		{20, enrich.TimeEvening},
		{21, enrich.TimeNight},
		{0, enrich.TimeNight},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, enrich.BucketTimeOfDay(tc.hour), "hour %d", tc.hour)
	}
}

func TestDominantMood(t *testing.T) {
	assert.Equal(t, "curiosity", enrich.DominantMood(&enrich.EmotionalSnapshot{
		Serenity: 0.2, Curiosity: 0.9, Fatigue: 0.1, Connection: 0.3,
	}))

	// Ties resolve by the fixed priority order.
	assert.Equal(t, "serenity", enrich.DominantMood(&enrich.EmotionalSnapshot{
		Serenity: 0.5, Curiosity: 0.5, Fatigue: 0.5, Connection: 0.5,
	}))
	assert.Equal(t, "fatigue", enrich.DominantMood(&enrich.EmotionalSnapshot{
		Serenity: 0.1, Curiosity: 0.1, Fatigue: 0.6, Connection: 0.6,
	}))
}

func TestEnrich(t *testing.T) {
	// Wednesday morning.
	now := time.Date(2025, 6, 4, 9, 30, 0, 0, time.UTC)

	meta := enrich.Enrich("urgent: the deploy is blocked, remember the rollback",
		now, &enrich.EmotionalSnapshot{Fatigue: 0.8, Curiosity: 0.2})

	assert.Equal(t, "Wednesday", meta.DayOfWeek)
	assert.Equal(t, enrich.TimeMorning, meta.TimeOfDay)
	assert.Equal(t, enrich.MessageTypeStatement, meta.MessageType)
	assert.Equal(t, enrich.UrgencyHigh, meta.Urgency)
	assert.Contains(t, meta.Tags, "technical")
	assert.Contains(t, meta.Tags, "memory")

	if assert.NotNil(t, meta.Emotional) {
		assert.Equal(t, "fatigue", meta.Emotional.DominantMood)
		assert.Equal(t, 0.8, meta.Emotional.Fatigue)
	}
}

func TestEnrichDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 4, 22, 0, 0, 0, time.UTC)
	snapshot := &enrich.EmotionalSnapshot{Serenity: 0.7}

	first := enrich.Enrich("do you remember the launch?", now, snapshot)
	second := enrich.Enrich("do you remember the launch?", now, snapshot)
	assert.Equal(t, first, second)
}

func TestEnrichWithoutSnapshot(t *testing.T) {
	meta := enrich.Enrich("plain note", time.Now(), nil)
	assert.Nil(t, meta.Emotional)
}
