package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/undeconstructed/lastcard/comms"
)

// Client is a comms connection to a server, as one player.
type Client struct {
	conn net.Conn
	enc  *comms.Encoder
	dec  *comms.Decoder

	GameID   string
	PlayerID string

	mu    sync.Mutex
	reqNo int
}

type reply struct {
	Data json.RawMessage   `json:"data"`
	Err  *comms.CommsError `json:"error"`
}

// Dial connects and identifies with a connect code.
func Dial(ctx context.Context, addr, code string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, err := newClient(ctx, conn, code)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(ctx context.Context, conn net.Conn, code string) (*Client, error) {
	c := &Client{
		conn: conn,
		enc:  comms.NewEncoder(conn),
		dec:  comms.NewDecoder(conn),
	}

	stop := deadline(ctx, conn)
	defer stop()

	if err := c.enc.Encode("connect "+code, nil); err != nil {
		return nil, err
	}
	msg, err := c.dec.Decode()
	if err != nil {
		return nil, err
	}
	if msg.Type() != "connected" {
		return nil, fmt.Errorf("unexpected %q", msg.Head)
	}
	var res comms.ConnectResponse
	if err := comms.Decode(msg, &res); err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}

	c.GameID = res.GameID
	c.PlayerID = res.PlayerID
	return c, nil
}

// deadline applies ctx's deadline to conn until the returned func is called.
func deadline(ctx context.Context, conn net.Conn) func() {
	if d, ok := ctx.Deadline(); ok {
		conn.SetDeadline(d)
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	return func() {
		stop()
		conn.SetDeadline(time.Time{})
	}
}

// Do sends one request and reads its response into out. Responses come back
// in request order, so there is only ever one in flight.
func (c *Client) Do(ctx context.Context, command string, body, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := deadline(ctx, c.conn)
	defer stop()

	c.reqNo++
	id := strconv.Itoa(c.reqNo)

	if err := c.enc.Encode("request "+id+" "+command, body); err != nil {
		return err
	}
	msg, err := c.dec.Decode()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if string(msg.Head) != comms.ResponseHead(id) {
		return fmt.Errorf("out of order response %q to request %s", msg.Head, id)
	}

	var r reply
	if err := comms.Decode(msg, &r); err != nil {
		return err
	}
	if r.Err != nil {
		return r.Err
	}
	if out == nil || len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}

func (c *Client) Close() error {
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
