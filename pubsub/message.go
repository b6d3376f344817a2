package pubsub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	messageMagick   = "pytroll:/"
	messageVersion  = "v1.01"
	messageMimeJSON = "application/json"
	messageTime     = "2006-01-02T15:04:05.000000"
)

// Message types.
const (
	TypeFile = "file"
)

var ErrMalformedMessage = errors.New("pubsub: malformed message")

// Message is the envelope of a published event.
type Message struct {
	ID      string
	Subject string
	Type    string
	Sender  string
	Time    time.Time
	Version string
	Data    json.RawMessage
}

// NewMessage returns a new message carrying data encoded as JSON.
func NewMessage(subject, typ string, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("pubsub: encoding message data: %w", err)
	}

	return &Message{
		ID:      uuid.NewString(),
		Subject: normalizeSubject(subject),
		Type:    typ,
		Sender:  defaultSender(),
		Time:    time.Now().UTC(),
		Version: messageVersion,
		Data:    raw,
	}, nil
}

func normalizeSubject(subject string) string {
	if strings.HasPrefix(subject, "/") {
		return subject
	}
	return "/" + subject
}

func defaultSender() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	name := "satwriter"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}

	return name + "@" + host
}

// Encode renders the message in the textual pytroll envelope:
//
//	pytroll://<subject> <type> <sender> <time> <version> application/json <data>
func (m *Message) Encode() []byte {
	buf := bytes.Buffer{}

	buf.WriteString(messageMagick)
	buf.WriteString(m.Subject)
	buf.WriteByte(' ')
	buf.WriteString(m.Type)
	buf.WriteByte(' ')
	buf.WriteString(m.Sender)
	buf.WriteByte(' ')
	buf.WriteString(m.Time.UTC().Format(messageTime))
	buf.WriteByte(' ')
	buf.WriteString(m.Version)
	buf.WriteByte(' ')
	buf.WriteString(messageMimeJSON)
	buf.WriteByte(' ')
	buf.Write(m.Data)

	return buf.Bytes()
}

func (m *Message) String() string {
	return string(m.Encode())
}

// Decode parses a message encoded by [Message.Encode].
// The ID of a decoded message is empty since it is not part of the envelope.
func Decode(raw []byte) (*Message, error) {
	if !bytes.HasPrefix(raw, []byte(messageMagick)) {
		return nil, fmt.Errorf("%w: missing magick", ErrMalformedMessage)
	}

	fields := strings.SplitN(string(raw[len(messageMagick):]), " ", 7)
	if len(fields) < 7 {
		return nil, fmt.Errorf("%w: expected 7 fields, got %d", ErrMalformedMessage, len(fields))
	}

	if fields[5] != messageMimeJSON {
		return nil, fmt.Errorf("%w: unsupported mime type %q", ErrMalformedMessage, fields[5])
	}

	msgTime, err := time.Parse(messageTime, fields[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	data := json.RawMessage(fields[6])
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid data", ErrMalformedMessage)
	}

	return &Message{
		Subject: fields[0],
		Type:    fields[1],
		Sender:  fields[2],
		Time:    msgTime,
		Version: fields[4],
		Data:    data,
	}, nil
}

// UnmarshalData decodes the message data into v.
func (m *Message) UnmarshalData(v any) error {
	return json.Unmarshal(m.Data, v)
}
