// Package events defines the envelopes emitted on the event bus.
//
// Every write to an incident or unit record is followed by a publish of the
// post-write state, and closure records are announced once on creation.
// Subscribers receive Event values and branch on Kind.
package events
