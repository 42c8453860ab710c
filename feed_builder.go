package stowhub

import "time"

type feedBuilder struct {
	capacity    int
	schedule    []time.Duration
	maxAttempts int
}

func newFeedBuilder() *feedBuilder {
	return &feedBuilder{
		capacity:    defaultFeedCapacity,
		schedule:    defaultFeedRetrySchedule,
		maxAttempts: defaultFeedMaxAttempts,
	}
}

// FeedOption represents a type that can be used to configure the feed.
type FeedOption interface {
	config(*feedBuilder)
}

// FeedWithCapacity sets how many recent events the feed retains.
func FeedWithCapacity(capacity int) FeedOption {
	return &feedWithCapacity{
		capacity: capacity,
	}
}

type feedWithCapacity struct {
	capacity int
}

func (opt feedWithCapacity) config(builder *feedBuilder) {
	builder.capacity = opt.capacity
}

// FeedWithRetrySchedule sets the delays used between reconnection attempts.
// Attempts beyond the schedule reuse its last entry.
func FeedWithRetrySchedule(schedule ...time.Duration) FeedOption {
	return &feedWithRetrySchedule{
		schedule: schedule,
	}
}

type feedWithRetrySchedule struct {
	schedule []time.Duration
}

func (opt feedWithRetrySchedule) config(builder *feedBuilder) {
	builder.schedule = opt.schedule
}

// FeedWithMaxAttempts sets how many reconnection attempts are made before
// the feed gives up and stays disconnected.
func FeedWithMaxAttempts(maxAttempts int) FeedOption {
	return &feedWithMaxAttempts{
		maxAttempts: maxAttempts,
	}
}

type feedWithMaxAttempts struct {
	maxAttempts int
}

func (opt feedWithMaxAttempts) config(builder *feedBuilder) {
	builder.maxAttempts = opt.maxAttempts
}
