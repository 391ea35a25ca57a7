// Package comms is the framing shared by the TCP and websocket gateways: one
// JSON object per line, with a text head saying what the data is.
package comms

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Head is a space separated message header, e.g. "request 4 play".
type Head string

// Fields splits the head into words.
func (h Head) Fields() []string {
	return strings.Fields(string(h))
}

// Message is one frame.
type Message struct {
	Head Head            `json:"head"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Type is the first word of the head.
func (m Message) Type() string {
	f := m.Head.Fields()
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Encode makes a message with data as JSON.
func Encode(head string, data interface{}) (Message, error) {
	if data == nil {
		return Message{Head: Head(head)}, nil
	}
	bs, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Head: Head(head), Data: bs}, nil
}

// Decode reads msg's data into v.
func Decode(msg Message, v interface{}) error {
	if len(msg.Data) == 0 {
		return nil
	}
	return json.Unmarshal(msg.Data, v)
}

type Encoder struct {
	w   io.Writer
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, enc: json.NewEncoder(w)}
}

// Encode writes a message straight from a head and data.
func (e *Encoder) Encode(head string, data interface{}) error {
	msg, err := Encode(head, data)
	if err != nil {
		return err
	}
	return e.Send(msg)
}

// Send writes a message, newline terminated.
func (e *Encoder) Send(msg Message) error {
	return e.enc.Encode(msg)
}

type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next message. A clean end of stream is io.EOF.
func (d *Decoder) Decode() (Message, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(strings.TrimSpace(string(line))) > 0 {
			return Message{}, io.ErrUnexpectedEOF
		}
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, fmt.Errorf("bad frame: %w", err)
	}
	if msg.Head == "" {
		return Message{}, errors.New("bad frame: no head")
	}
	return msg, nil
}

// CommsError is an error that can cross the wire.
type CommsError struct {
	Code string `json:"code"`
	Msg  string `json:"message"`
}

func (e *CommsError) Error() string {
	return e.Msg
}

type coded interface {
	ErrorCode() string
}

// WrapError makes any error wire safe, keeping its code if it has one.
func WrapError(err error) *CommsError {
	if err == nil {
		return nil
	}
	var ce *CommsError
	if errors.As(err, &ce) {
		return ce
	}
	code := "INTERNAL"
	var c coded
	if errors.As(err, &c) {
		code = c.ErrorCode()
	}
	return &CommsError{Code: code, Msg: err.Error()}
}

// ConnectRequest is the data of the first frame from a client.
type ConnectRequest struct {
	Code string `json:"code"`
}

// ConnectResponse answers it.
type ConnectResponse struct {
	GameID   string      `json:"game,omitempty"`
	PlayerID string      `json:"player,omitempty"`
	Err      *CommsError `json:"error,omitempty"`
}

// Request is a client frame: "request <id> <command>".
type Request struct {
	ID      string
	Command string
	Args    []string
	Body    json.RawMessage
}

// ParseRequest reads a request frame.
func ParseRequest(msg Message) (Request, error) {
	f := msg.Head.Fields()
	if len(f) < 3 || f[0] != "request" {
		return Request{}, fmt.Errorf("not a request: %q", msg.Head)
	}
	return Request{ID: f[1], Command: f[2], Args: f[3:], Body: msg.Data}, nil
}

// ResponseHead is the head of the answer to request id.
func ResponseHead(id string) string {
	return "response:" + id
}
