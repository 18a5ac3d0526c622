package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ChangeHandler receives answer-key change notifications for one test.
// It runs on the delivery goroutine and must not block.
type ChangeHandler func(event *events.AnswerKeyChangedEvent)

// ChangeSubscriber registers interest in answer-key changes of a test.
type ChangeSubscriber interface {
	Subscribe(testID string, handler ChangeHandler) (unsubscribe func(), err error)
}

// RealtimeSync consumes the answer-key topic once and fans each change out
// to the handlers registered for its test. Once an unsubscribe function has
// returned, its handler is never called again.
type RealtimeSync struct {
	subscriber message.Subscriber
	topic      string
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[string]map[uint64]ChangeHandler
	nextID   uint64
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRealtimeSync(subscriber message.Subscriber, topic string, logger *slog.Logger) *RealtimeSync {
	return &RealtimeSync{
		subscriber: subscriber,
		topic:      topic,
		logger:     logger,
		handlers:   make(map[string]map[uint64]ChangeHandler),
	}
}

// Start opens the topic subscription. Subscribe calls it lazily as well.
func (r *RealtimeSync) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx)
}

func (r *RealtimeSync) startLocked(ctx context.Context) error {
	if r.started {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	messages, err := r.subscriber.Subscribe(subCtx, r.topic)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", r.topic, err)
	}

	r.started = true
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.consume(messages, r.done)

	r.logger.Info("Listening for answer key changes", "topic", r.topic)
	return nil
}

func (r *RealtimeSync) Subscribe(testID string, handler ChangeHandler) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.startLocked(context.Background()); err != nil {
		return nil, err
	}

	r.nextID++
	id := r.nextID
	if r.handlers[testID] == nil {
		r.handlers[testID] = make(map[uint64]ChangeHandler)
	}
	r.handlers[testID][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.handlers[testID], id)
			if len(r.handlers[testID]) == 0 {
				delete(r.handlers, testID)
			}
		})
	}, nil
}

// Close stops consuming and waits for the delivery goroutine to finish.
func (r *RealtimeSync) Close() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.started = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *RealtimeSync) consume(messages <-chan *message.Message, done chan struct{}) {
	defer close(done)
	for msg := range messages {
		r.deliver(msg)
		msg.Ack()
	}
}

func (r *RealtimeSync) deliver(msg *message.Message) {
	event, err := events.DecodeAnswerKeyChanged(msg.Payload)
	if err != nil {
		r.logger.Warn("Dropping unreadable answer key event",
			"message_uuid", msg.UUID,
			"error", err)
		return
	}

	testID := event.TestID
	if testID == "" {
		testID = msg.Metadata.Get(events.MetadataTestID)
		event.TestID = testID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, handler := range r.handlers[testID] {
		handler(event)
	}
}
