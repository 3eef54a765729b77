package core

import (
	"time"

	"github.com/memoria-ai/memoria-go/pkg/enrich"
)

// RecordOption is a function type for configuring Record operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type RecordOption func(*RecordOptions)

// RecordOptions contains configuration options for Record operations.
type RecordOptions struct {
	// Source identifies where the content came from. Agent responses are
	// subject to the significance threshold; user messages are always
	// stored. Default: SourceUserMessage.
	Source Source

	// EmotionalSnapshot is the caller's emotional state at write time
	// (optional). When set, the enricher derives an emotional context
	// with a dominant mood.
	EmotionalSnapshot *enrich.EmotionalSnapshot

	// Timestamp overrides the record's creation time (optional, used by
	// import and replay flows). Zero means "now".
	Timestamp time.Time
}

// WithSource sets the content source for Record operations.
//
// Example:
//
//	id, _ := client.Record(ctx, reply, owner,
//	    core.WithSource(core.SourceAgentResponse))
func WithSource(source Source) RecordOption {
	return func(opts *RecordOptions) {
		opts.Source = source
	}
}

// WithEmotionalSnapshot attaches the caller's emotional state to a Record
// operation.
//
// Example:
//
//	id, _ := client.Record(ctx, content, owner,
//	    core.WithEmotionalSnapshot(&enrich.EmotionalSnapshot{Curiosity: 0.9}))
func WithEmotionalSnapshot(snapshot *enrich.EmotionalSnapshot) RecordOption {
	return func(opts *RecordOptions) {
		opts.EmotionalSnapshot = snapshot
	}
}

// WithTimestamp overrides the creation time for Record operations.
func WithTimestamp(at time.Time) RecordOption {
	return func(opts *RecordOptions) {
		opts.Timestamp = at
	}
}

// applyRecordOptions applies record options and returns the resolved struct.
func applyRecordOptions(opts []RecordOption) *RecordOptions {
	options := &RecordOptions{
		Source: SourceUserMessage,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// RetrieveOption is a function type for configuring Retrieve operations.
type RetrieveOption func(*RetrieveOptions)

// RetrieveOptions contains configuration options for Retrieve operations.
type RetrieveOptions struct {
	// Conversations lists the shared conversations visible to the caller.
	// Each is still subject to the agent's join cutoff.
	Conversations []string
}

// WithConversations sets the visible shared conversations for Retrieve
// operations.
//
// Example:
//
//	bundle := client.Retrieve(ctx, "the launch plan", "aria",
//	    core.WithConversations("team-room", "standup"))
func WithConversations(conversationIDs ...string) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.Conversations = append(opts.Conversations, conversationIDs...)
	}
}

// applyRetrieveOptions applies retrieve options and returns the resolved
// struct.
func applyRetrieveOptions(opts []RetrieveOption) *RetrieveOptions {
	options := &RetrieveOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
