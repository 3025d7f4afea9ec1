package message

import (
	"fmt"
	"maps"
	"time"

	"github.com/axmq/ds/topic"
	"github.com/fxamacker/cbor/v2"
)

// QoS is the delivery guarantee requested by the publisher
type QoS byte

const (
	QoS0 QoS = iota // At most once
	QoS1            // At least once
	QoS2            // Exactly once
)

// Valid reports whether q is a known QoS level
func (q QoS) Valid() bool {
	return q <= QoS2
}

// Message is a published message as handed to durable storage
type Message struct {
	_ struct{} `cbor:",toarray"`

	From           string // Publishing client id
	Topic          string
	Payload        []byte
	QoS            QoS
	Retain         bool
	Headers        map[string]string
	Timestamp      int64 // Microseconds since the Unix epoch
	ExpiryInterval uint32
}

// New creates a message stamped with the current time
func New(from, topicName string, payload []byte, qos QoS, retain bool) *Message {
	return &Message{
		From:      from,
		Topic:     topicName,
		Payload:   payload,
		QoS:       qos,
		Retain:    retain,
		Timestamp: time.Now().UnixMicro(),
	}
}

// Validate checks the topic name and QoS level
func (m *Message) Validate() error {
	if err := topic.ValidateTopic(m.Topic); err != nil {
		return err
	}
	if !m.QoS.Valid() {
		return fmt.Errorf("invalid QoS level %d", m.QoS)
	}
	return nil
}

// CreatedAt returns the message timestamp as a time
func (m *Message) CreatedAt() time.Time {
	return time.UnixMicro(m.Timestamp)
}

// IsExpired reports whether the expiry interval has elapsed at now
func (m *Message) IsExpired(now time.Time) bool {
	if m.ExpiryInterval == 0 {
		return false
	}
	return now.Sub(m.CreatedAt()) >= time.Duration(m.ExpiryInterval)*time.Second
}

// RemainingExpiry returns the seconds left before the message expires at now
func (m *Message) RemainingExpiry(now time.Time) uint32 {
	if m.ExpiryInterval == 0 {
		return 0
	}
	elapsed := now.Sub(m.CreatedAt())
	if elapsed < 0 {
		return m.ExpiryInterval
	}
	if secs := uint32(elapsed / time.Second); secs < m.ExpiryInterval {
		return m.ExpiryInterval - secs
	}
	return 0
}

// Clone creates a deep copy of the message
func (m *Message) Clone() *Message {
	c := *m
	if m.Payload != nil {
		c.Payload = append([]byte(nil), m.Payload...)
	}
	c.Headers = maps.Clone(m.Headers)
	return &c
}

// messageWire has Message's layout without its methods, so the codec does
// not dispatch back into MarshalBinary
type messageWire Message

// MarshalBinary encodes the message as a CBOR array
func (m *Message) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*messageWire)(m))
}

// UnmarshalBinary decodes a message produced by MarshalBinary
func (m *Message) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*messageWire)(m))
}
