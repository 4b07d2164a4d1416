package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// DefaultTopicPrefix is the MQTT topic root used when none is configured.
const DefaultTopicPrefix = "cactus"

// Publisher sends a payload to a broker topic.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	Close() error
}

// mqttPayload is the document published for each timer event.
type mqttPayload struct {
	Phase            string  `json:"phase"`
	IsBreak          bool    `json:"isBreak"`
	RemainingSeconds int     `json:"remainingSeconds"`
	InitialSeconds   int     `json:"initialSeconds"`
	Fraction         float64 `json:"fraction"`
	Theme            string  `json:"theme"`
	Timestamp        int64   `json:"timestamp"`
}

// MQTTSink mirrors timer events to an MQTT broker. The state topic is
// retained so new subscribers see the current countdown immediately.
type MQTTSink struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
	done   chan struct{}
}

// NewMQTTSink creates a sink publishing under prefix.
func NewMQTTSink(pub Publisher, prefix string, logger *slog.Logger) *MQTTSink {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTTSink{
		pub:    pub,
		prefix: prefix,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// StateTopic returns the retained state topic.
func (s *MQTTSink) StateTopic() string { return s.prefix + "/state" }

// EndedTopic returns the topic receiving countdown end notices.
func (s *MQTTSink) EndedTopic() string { return s.prefix + "/ended" }

// Start begins publishing events.
func (s *MQTTSink) Start(ctx context.Context, events <-chan Event) error {
	go s.run(ctx, events)
	return nil
}

func (s *MQTTSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.publish(event)
		}
	}
}

func (s *MQTTSink) publish(event Event) {
	te, ok := event.(*TimerEvent)
	if !ok {
		return
	}

	snap := te.Snapshot()
	body, err := json.Marshal(mqttPayload{
		Phase:            string(snap.State.Phase()),
		IsBreak:          snap.State.Timer.IsBreak,
		RemainingSeconds: snap.State.Timer.RemainingSeconds,
		InitialSeconds:   snap.State.Timer.InitialSeconds,
		Fraction:         snap.Fraction(),
		Theme:            snap.Settings.Theme,
		Timestamp:        te.Timestamp().UnixMilli(),
	})
	if err != nil {
		s.logger.Error("mqtt payload encode failed", "error", err)
		return
	}

	topic, retained := s.StateTopic(), true
	if te.Type() == EventTimerEnded {
		topic, retained = s.EndedTopic(), false
	}

	if err := s.pub.Publish(topic, body, retained); err != nil {
		s.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
	}
}

// Stop waits for the run goroutine and disconnects the publisher.
func (s *MQTTSink) Stop() error {
	<-s.done
	return s.pub.Close()
}
