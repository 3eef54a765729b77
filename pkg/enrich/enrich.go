package enrich

import (
	"sort"
	"strings"
	"time"
)

// codeKeywords drive the density check for code classification.
var codeKeywords = []string{
	"func ", "return ", "import ", "package ", "class ", "def ", "var ",
	"const ", "if err", "nil", "struct", "interface", "=>", "();",
}

// interrogatives mark question openings.
var interrogatives = []string{
	"what", "why", "how", "when", "where", "who", "which", "can", "could",
	"should", "would", "do", "does", "is", "are",
}

// reflectionVocab marks introspective content.
var reflectionVocab = []string{
	"i think", "i feel that", "reflect", "reflection", "introspect",
	"self-aware", "autopoiesis", "i realize", "i wonder", "looking back",
}

// emotionVocab marks affective content.
var emotionVocab = []string{
	"love", "miss you", "happy", "sad", "afraid", "excited", "grateful",
	"lonely", "proud", "hug", "heart", "feel", "feeling",
}

// urgencyHigh and urgencyMedium drive the urgency grade, checked in order.
var (
	urgencyHigh   = []string{"critical", "urgent", "blocked", "error", "asap", "emergency", "broken"}
	urgencyMedium = []string{"soon", "important", "priority", "deadline", "remember to", "don't forget"}
)

// tagTaxonomy maps each fixed tag to its keyword set.
var tagTaxonomy = map[string][]string{
	"technical":   {"code", "bug", "deploy", "server", "api", "database", "func ", "error", "build"},
	"project":     {"project", "milestone", "release", "launch", "roadmap", "sprint"},
	"agents":      {"agent", "assistant", "bot", "conversation", "chat"},
	"memory":      {"remember", "memory", "recall", "forget", "remind"},
	"emotional":   {"love", "happy", "sad", "feel", "feeling", "mood", "heart"},
	"autopoiesis": {"autopoiesis", "self-organization", "emergence", "introspection", "becoming"},
}

// Enrich derives Metadata for a memory fragment.
//
// Classification is purely lexical and deterministic: fenced code blocks or
// code-keyword density select the code type, then question, reflection and
// emotional vocabulary are tried in that order, falling back to statement.
// Time buckets come from now; the emotional context is derived only when a
// snapshot is supplied.
//
// Parameters:
//   - content: The raw remembered text
//   - now: The write-time clock reading (callers inject it for testability)
//   - snapshot: Optional emotional state at write time (nil to omit)
//
// Returns the derived Metadata.
func Enrich(content string, now time.Time, snapshot *EmotionalSnapshot) Metadata {
	meta := Metadata{
		DayOfWeek:   now.Weekday().String(),
		TimeOfDay:   BucketTimeOfDay(now.Hour()),
		MessageType: ClassifyMessageType(content),
		Urgency:     ClassifyUrgency(content),
		Tags:        CollectTags(content),
	}

	if snapshot != nil {
		meta.Emotional = &EmotionalContext{
			Serenity:     snapshot.Serenity,
			Curiosity:    snapshot.Curiosity,
			Fatigue:      snapshot.Fatigue,
			Connection:   snapshot.Connection,
			DominantMood: DominantMood(snapshot),
		}
	}

	return meta
}

// ClassifyMessageType classifies an utterance.
//
// Priority order: code, question, reflection, emotional, statement.
func ClassifyMessageType(content string) MessageType {
	lower := strings.ToLower(content)

	if strings.Contains(content, "```") || codeKeywordDensity(lower) >= 2 {
		return MessageTypeCode
	}
	if strings.Contains(content, "?") || startsWithInterrogative(lower) {
		return MessageTypeQuestion
	}
	if containsAny(lower, reflectionVocab) {
		return MessageTypeReflection
	}
	if containsAny(lower, emotionVocab) {
		return MessageTypeEmotional
	}
	return MessageTypeStatement
}

// ClassifyUrgency grades time-criticality from crisis and priority vocabulary.
func ClassifyUrgency(content string) Urgency {
	lower := strings.ToLower(content)
	if containsAny(lower, urgencyHigh) {
		return UrgencyHigh
	}
	if containsAny(lower, urgencyMedium) {
		return UrgencyMedium
	}
	return UrgencyLow
}

// CollectTags returns the sorted taxonomy tags whose keyword sets match.
func CollectTags(content string) []string {
	lower := strings.ToLower(content)

	var tags []string
	for tag, keywords := range tagTaxonomy {
		if containsAny(lower, keywords) {
			tags = append(tags, tag)
		}
	}

	// Map iteration order is random; sort for a stable result.
	sort.Strings(tags)
	return tags
}

// BucketTimeOfDay buckets an hour (0-23) into a TimeOfDay.
func BucketTimeOfDay(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour <= 11:
		return TimeMorning
	case hour >= 12 && hour <= 16:
		return TimeAfternoon
	case hour >= 17 && hour <= 20:
		return TimeEvening
	default:
		return TimeNight
	}
}

// DominantMood returns the name of the highest emotional scalar.
//
// Ties resolve by the fixed priority serenity > curiosity > fatigue >
// connection, so the result is stable for equal inputs.
func DominantMood(s *EmotionalSnapshot) string {
	// Order matters: earlier entries win ties.
	moods := []struct {
		name  string
		value float64
	}{
		{"serenity", s.Serenity},
		{"curiosity", s.Curiosity},
		{"fatigue", s.Fatigue},
		{"connection", s.Connection},
	}

	best := moods[0]
	for _, m := range moods[1:] {
		if m.value > best.value {
			best = m
		}
	}
	return best.name
}

// codeKeywordDensity counts distinct code keywords present in the content.
func codeKeywordDensity(lower string) int {
	count := 0
	for _, kw := range codeKeywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

// startsWithInterrogative reports whether the first word is an interrogative.
func startsWithInterrogative(lower string) bool {
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], ",.!:;")
	for _, w := range interrogatives {
		if first == w {
			return true
		}
	}
	return false
}

// containsAny reports whether any of the needles occurs in the haystack.
func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
