package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/undeconstructed/lastcard/comms"
)

// WsJSONMessage is a comms frame as a websocket text message.
type WsJSONMessage struct {
	Head string          `json:"head"`
	Data json.RawMessage `json:"data,omitempty"`
}

type commsHandler struct {
	server *Server
	log    zerolog.Logger
}

// serveWS speaks the comms protocol over a websocket. Who is connecting is in
// the query, as a code or as game and player, so there is no connect frame.
func (h commsHandler) serveWS(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

func (h commsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" && q.Get("game") != "" && q.Get("player") != "" {
		code = comms.EncodeConnectString(q.Get("game"), q.Get("player"))
	}
	if code == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log := h.log.With().Str("client", r.RemoteAddr).Logger()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{"comms"},
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Info().Err(err).Msg("accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	if c.Subprotocol() != "comms" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the comms subprotocol")
		return
	}

	ctx := r.Context()

	ss, res, err := h.server.connect(ctx, comms.Message{Head: comms.Head("connect " + code)}, log)
	if sendErr := sendDownWs(ctx, c, res); sendErr != nil {
		log.Info().Err(sendErr).Msg("send error")
		return
	}
	if err != nil {
		log.Info().Err(err).Msg("refusing")
		c.Close(websocket.StatusPolicyViolation, "connect refused")
		return
	}

	for {
		msg, err := readMessageWs(ctx, c)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return
		}
		if err != nil {
			log.Info().Err(err).Msg("read failed")
			return
		}
		log.Debug().Msgf("received: %s %s", msg.Head, string(msg.Data))

		if err := sendDownWs(ctx, c, ss.handle(ctx, msg)); err != nil {
			log.Info().Err(err).Msg("send error")
			return
		}
	}
}

func sendDownWs(ctx context.Context, ws *websocket.Conn, msg comms.Message) error {
	w, err := ws.Writer(ctx, websocket.MessageText)
	if err != nil {
		return err
	}
	defer w.Close()

	jmsg := WsJSONMessage{
		Head: string(msg.Head),
		Data: msg.Data,
	}
	tmsg, err := json.Marshal(jmsg)
	if err != nil {
		return err
	}

	if _, err := w.Write(tmsg); err != nil {
		return err
	}
	return w.Close()
}

func readMessageWs(ctx context.Context, c *websocket.Conn) (comms.Message, error) {
	typ, r, err := c.Reader(ctx)
	if err != nil {
		return comms.Message{}, err
	}

	if typ != websocket.MessageText {
		return comms.Message{}, fmt.Errorf("can't deal with a %v", typ)
	}

	bytes, err := io.ReadAll(r)
	if err != nil {
		return comms.Message{}, err
	}
	msg := WsJSONMessage{}
	if err := json.Unmarshal(bytes, &msg); err != nil {
		return comms.Message{}, err
	}
	if msg.Head == "" {
		return comms.Message{}, fmt.Errorf("bad frame: no head")
	}

	return comms.Message{Head: comms.Head(msg.Head), Data: msg.Data}, nil
}
