// Package enrich derives structured metadata for memory content at write time.
//
// All classification in this package is rule-based and deterministic: the same
// content, clock reading, and emotional snapshot always produce the same
// Metadata. This keeps enrichment independently testable and free of any
// model or network dependency.
package enrich

// MessageType classifies what kind of utterance a memory fragment is.
type MessageType string

const (
	// MessageTypeCode indicates the content contains code (fenced block or
	// high code-keyword density).
	MessageTypeCode MessageType = "code"

	// MessageTypeQuestion indicates the content asks a question.
	MessageTypeQuestion MessageType = "question"

	// MessageTypeReflection indicates introspective or self-referential content.
	MessageTypeReflection MessageType = "reflection"

	// MessageTypeEmotional indicates affective content.
	MessageTypeEmotional MessageType = "emotional"

	// MessageTypeStatement is the default classification.
	MessageTypeStatement MessageType = "statement"
)

// Urgency grades how time-critical a memory fragment is.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// TimeOfDay buckets the hour of creation.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"   // 05-11
	TimeAfternoon TimeOfDay = "afternoon" // 12-16
	TimeEvening   TimeOfDay = "evening"   // 17-20
	TimeNight     TimeOfDay = "night"     // everything else
)

// EmotionalSnapshot is the caller-supplied emotional state at write time.
//
// Each scalar is expected in [0, 1]; values outside that range are used as
// given (the enricher never clamps, so callers keep full control).
type EmotionalSnapshot struct {
	Serenity   float64 `json:"serenity"`
	Curiosity  float64 `json:"curiosity"`
	Fatigue    float64 `json:"fatigue"`
	Connection float64 `json:"connection"`
}

// EmotionalContext is the snapshot plus the derived dominant mood.
type EmotionalContext struct {
	Serenity   float64 `json:"serenity"`
	Curiosity  float64 `json:"curiosity"`
	Fatigue    float64 `json:"fatigue"`
	Connection float64 `json:"connection"`

	// DominantMood is the name of the highest scalar. Ties resolve in the
	// fixed priority order serenity > curiosity > fatigue > connection.
	DominantMood string `json:"dominant_mood"`
}

// Metadata is the derived, typed tag bundle attached to a memory record.
type Metadata struct {
	// DayOfWeek is the English weekday name ("Monday" ... "Sunday").
	DayOfWeek string `json:"day_of_week"`

	// TimeOfDay is the bucketed creation hour.
	TimeOfDay TimeOfDay `json:"time_of_day"`

	// MessageType is the utterance classification.
	MessageType MessageType `json:"message_type"`

	// Urgency is the time-criticality grade.
	Urgency Urgency `json:"urgency"`

	// Tags is the sorted, de-duplicated taxonomy membership.
	Tags []string `json:"tags,omitempty"`

	// Emotional is present only when a snapshot was supplied at write time.
	Emotional *EmotionalContext `json:"emotional_context,omitempty"`
}
