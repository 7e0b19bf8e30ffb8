package events

import (
	"encoding/json"
	"fmt"
)

// Message is one event received from the bus.
type Message struct {
	Topic string
	Data  []byte
}

// Decode unmarshals the payload into the event type of its topic.
func (m Message) Decode() (any, error) {
	var v any
	switch m.Topic {
	case TopicProfilePatched:
		v = &ProfilePatched{}
	case TopicProfileRenamed:
		v = &ProfileRenamed{}
	case TopicProfileDeleted:
		v = &ProfileDeleted{}
	case TopicProfileMigrated:
		v = &ProfileMigrated{}
	case TopicLegacyPatched:
		v = &LegacyPatched{}
	default:
		return nil, fmt.Errorf("unknown topic %q", m.Topic)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", m.Topic, err)
	}
	return v, nil
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages matching topic on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
