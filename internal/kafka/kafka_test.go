package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/gallery/internal/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestProducer_PublishEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "gallery.events.v1"}
	session := uuid.New()
	ev := &models.Event{ID: uuid.New(), Type: models.EventNarrationReady, SessionID: &session, OccurredAt: time.Now()}

	if err := p.PublishEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != session.String() {
		t.Errorf("key = %q, want session id", msg.Key)
	}
	var got models.Event
	if err := json.Unmarshal(msg.Value, &got); err != nil || got.ID != ev.ID || got.Type != ev.Type {
		t.Errorf("value = %s, %v", msg.Value, err)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != models.EventNarrationReady {
		t.Errorf("headers = %+v", msg.Headers)
	}
}

func TestProducer_WriteError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}
	if err := p.PublishEvent(context.Background(), &models.Event{ID: uuid.New(), Type: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestEventKey(t *testing.T) {
	id, story := uuid.New(), uuid.New()
	if got := eventKey(&models.Event{ID: id, StoryID: &story}); got != story.String() {
		t.Errorf("story event key = %q", got)
	}
	if got := eventKey(&models.Event{ID: id}); got != id.String() {
		t.Errorf("bare event key = %q", got)
	}
}

// fakeReader serves a fixed list of messages, then blocks until cancelled.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeHandler struct {
	mu       sync.Mutex
	failures int
	handled  []string
}

func (f *fakeHandler) HandleEvent(_ context.Context, ev *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("db unavailable")
	}
	f.handled = append(f.handled, ev.Type)
	return nil
}

func eventMessage(t *testing.T, offset int64, typ string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(&models.Event{ID: uuid.New(), Type: typ})
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Offset: offset, Value: b}
}

func TestConsumer_Start(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		eventMessage(t, 1, models.EventStoryCreated),
		{Offset: 2, Value: []byte("not json")},
		eventMessage(t, 3, models.EventSessionClosed),
	}}
	handler := &fakeHandler{failures: 2}
	c := &Consumer{reader: reader, handler: handler, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		reader.mu.Lock()
		n := len(reader.committed)
		reader.mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start returned %v", err)
	}

	if len(reader.committed) != 3 {
		t.Fatalf("committed offsets %v, want all three", reader.committed)
	}
	if len(handler.handled) != 2 || handler.handled[0] != models.EventStoryCreated {
		t.Errorf("handled = %v", handler.handled)
	}
}
