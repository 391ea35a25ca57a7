package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"nhooyr.io/websocket"

	"github.com/undeconstructed/lastcard/comms"
	"github.com/undeconstructed/lastcard/game"
	"github.com/undeconstructed/lastcard/store/memory"
)

// started makes a server with one dealt game for ann and bob. Ann deals, so
// ann has the first turn.
func started(t *testing.T) (s *Server, gameID string, ann, bob game.Player) {
	ctx := context.Background()
	tbl := game.NewTable(memory.New(), game.WithShuffler(game.NewShuffler(1)), game.WithLogger(zerolog.Nop()))
	s = NewServer(tbl, Addrs{})
	s.log = zerolog.Nop()

	g, err := tbl.CreateGame(ctx)
	require.NoError(t, err)
	ann, err = tbl.Join(ctx, g.ID, "ann", game.RolePlayer)
	require.NoError(t, err)
	bob, err = tbl.Join(ctx, g.ID, "bob", game.RolePlayer)
	require.NoError(t, err)
	_, err = tbl.Ready(ctx, g.ID, ann.ID)
	require.NoError(t, err)
	res, err := tbl.Ready(ctx, g.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, game.OutcomeStarted, res.Outcome)

	return s, g.ID, ann, bob
}

func TestGrpcStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{game.ErrGameNotFound, codes.NotFound},
		{game.ErrBadCard, codes.InvalidArgument},
		{game.ErrNotYourTurn, codes.FailedPrecondition},
		{game.Persistence("append", errors.New("disk")), codes.Unavailable},
		{fmt.Errorf("lock: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("what"), codes.Unknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, status.Code(grpcStatus(c.err)), c.err.Error())
	}
}

type restResult struct {
	Status int
	Body   []byte
}

func call(t *testing.T, srv *httptest.Server, method, path string, in interface{}) restResult {
	var body bytes.Buffer
	if in != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(in))
	}
	req, err := http.NewRequest(method, srv.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(res.Body)
	require.NoError(t, err)
	return restResult{res.StatusCode, out.Bytes()}
}

func TestRest(t *testing.T) {
	tbl := game.NewTable(memory.New(), game.WithLogger(zerolog.Nop()))
	s := NewServer(tbl, Addrs{})
	srv := httptest.NewServer(s.webHandler(zerolog.Nop()))
	defer srv.Close()

	r := call(t, srv, "GET", "/api/games/nope", nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
	var eo errorOutput
	require.NoError(t, json.Unmarshal(r.Body, &eo))
	assert.Equal(t, "NOGAME", eo.Error.Code)

	r = call(t, srv, "POST", "/api/games", nil)
	require.Equal(t, http.StatusCreated, r.Status)
	var mg MakeGameOutput
	require.NoError(t, json.Unmarshal(r.Body, &mg))
	require.NotEmpty(t, mg.ID)

	var joined []JoinOutput
	for _, nick := range []string{"ann", "bob"} {
		r = call(t, srv, "POST", "/api/games/"+mg.ID+"/players", JoinInput{Nickname: nick})
		require.Equal(t, http.StatusOK, r.Status, string(r.Body))
		var jo JoinOutput
		require.NoError(t, json.Unmarshal(r.Body, &jo))
		assert.Equal(t, nick, jo.Nickname)
		assert.NotEmpty(t, jo.Code)
		joined = append(joined, jo)
	}
	ann, bob := joined[0], joined[1]

	r = call(t, srv, "POST", "/api/games/"+mg.ID+"/players", "not an object")
	assert.Equal(t, http.StatusBadRequest, r.Status)

	var res game.Result
	r = call(t, srv, "PUT", "/api/games/"+mg.ID+"/players/"+ann.ID+"/ready", nil)
	require.Equal(t, http.StatusOK, r.Status)
	require.NoError(t, json.Unmarshal(r.Body, &res))
	assert.Equal(t, game.OutcomeReady, res.Outcome)

	r = call(t, srv, "PUT", "/api/games/"+mg.ID+"/players/"+bob.ID+"/ready", nil)
	require.Equal(t, http.StatusOK, r.Status)
	res = game.Result{}
	require.NoError(t, json.Unmarshal(r.Body, &res))
	assert.Equal(t, game.OutcomeStarted, res.Outcome)

	r = call(t, srv, "GET", "/api/games/"+mg.ID, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var st game.StateView
	require.NoError(t, json.Unmarshal(r.Body, &st))
	assert.True(t, st.Started)
	assert.Len(t, st.Deck, 41)
	assert.Len(t, st.Pile, 1)
	turn, ok := st.Turn()
	require.True(t, ok)
	assert.Equal(t, ann.ID, turn.ID)

	// refusals are results, not http errors
	r = call(t, srv, "POST", "/api/games/"+mg.ID+"/players/"+bob.ID+"/actions", game.Payload{Effect: "pickup"})
	require.Equal(t, http.StatusOK, r.Status)
	res = game.Result{}
	require.NoError(t, json.Unmarshal(r.Body, &res))
	assert.False(t, res.Success)
	assert.Equal(t, []string{"NOTYOURTURN"}, res.Codes)

	r = call(t, srv, "POST", "/api/games/"+mg.ID+"/players/"+ann.ID+"/actions", game.Payload{Effect: "PICKUP"})
	require.Equal(t, http.StatusOK, r.Status)
	res = game.Result{}
	require.NoError(t, json.Unmarshal(r.Body, &res))
	assert.True(t, res.Success, res.Errors)
	assert.Equal(t, game.OutcomeDrew, res.Outcome)
	require.NotNil(t, res.Drawn)

	r = call(t, srv, "GET", "/api/games/"+mg.ID+"/actions", nil)
	require.Equal(t, http.StatusOK, r.Status)
	var actions []game.ActionView
	require.NoError(t, json.Unmarshal(r.Body, &actions))
	require.Len(t, actions, 14)
	assert.Equal(t, game.EffectStartGame, actions[0].Effect)
	last := actions[len(actions)-1]
	assert.Equal(t, game.EffectPickup, last.Effect)
	assert.Equal(t, res.Drawn.Rank, last.CardRank)

	r = call(t, srv, "GET", fmt.Sprintf("/api/games/%s/actions?after=%d", mg.ID, actions[12].ID), nil)
	require.Equal(t, http.StatusOK, r.Status)
	actions = nil
	require.NoError(t, json.Unmarshal(r.Body, &actions))
	assert.Len(t, actions, 1)

	r = call(t, srv, "GET", "/api/games/"+mg.ID+"/actions?after=x", nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)
}

// wireReply is Reply as a client reads it.
type wireReply struct {
	Data json.RawMessage   `json:"data"`
	Err  *comms.CommsError `json:"error"`
}

func readReply(t *testing.T, msg comms.Message, head string, out interface{}) *comms.CommsError {
	t.Helper()
	require.Equal(t, head, string(msg.Head))
	var r wireReply
	require.NoError(t, comms.Decode(msg, &r))
	if r.Err == nil && out != nil {
		require.NoError(t, json.Unmarshal(r.Data, out))
	}
	return r.Err
}

func TestTcp(t *testing.T) {
	s, gameID, ann, bob := started(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	m := &tcpManager{server: s, log: zerolog.Nop()}
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, ln) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	dial := func(code string) (*comms.Encoder, *comms.Decoder, comms.ConnectResponse) {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		enc, dec := comms.NewEncoder(conn), comms.NewDecoder(conn)
		require.NoError(t, enc.Encode("connect "+code, nil))
		msg, err := dec.Decode()
		require.NoError(t, err)
		require.Equal(t, "connected", msg.Type())
		var cr comms.ConnectResponse
		require.NoError(t, comms.Decode(msg, &cr))
		return enc, dec, cr
	}

	_, _, cr := dial("garbage")
	require.NotNil(t, cr.Err)
	assert.Equal(t, "BADREQUEST", cr.Err.Code)

	_, _, cr = dial(comms.EncodeConnectString(gameID, "nobody"))
	require.NotNil(t, cr.Err)
	assert.Equal(t, "UNKNOWNPLAYER", cr.Err.Code)

	enc, dec, cr := dial(comms.EncodeConnectString(gameID, ann.ID))
	require.Nil(t, cr.Err)
	assert.Equal(t, ann.ID, cr.PlayerID)

	require.NoError(t, enc.Encode("request 1 state", nil))
	msg, err := dec.Decode()
	require.NoError(t, err)
	var st game.StateView
	require.Nil(t, readReply(t, msg, "response:1", &st))
	assert.Len(t, st.Hands[ann.ID], 5)

	require.NoError(t, enc.Encode("request 2 pickup", nil))
	msg, err = dec.Decode()
	require.NoError(t, err)
	var res game.Result
	require.Nil(t, readReply(t, msg, "response:2", &res))
	assert.True(t, res.Success, res.Errors)
	assert.Equal(t, ann.ID, res.Next)

	require.NoError(t, enc.Encode("request 3 shout", nil))
	msg, err = dec.Decode()
	require.NoError(t, err)
	ce := readReply(t, msg, "response:3", nil)
	require.NotNil(t, ce)
	assert.Equal(t, "BADREQUEST", ce.Code)

	require.NoError(t, enc.Encode("request 4 play", "not cards"))
	msg, err = dec.Decode()
	require.NoError(t, err)
	ce = readReply(t, msg, "response:4", nil)
	require.NotNil(t, ce)
	assert.Equal(t, "BADREQUEST", ce.Code)

	// a second player on the same game
	enc2, dec2, _ := dial(comms.EncodeConnectString(gameID, bob.ID))
	require.NoError(t, enc2.Encode("request a play", []game.Card{{Rank: game.Two, Suit: game.Hearts}}))
	msg, err = dec2.Decode()
	require.NoError(t, err)
	res = game.Result{}
	require.Nil(t, readReply(t, msg, "response:a", &res))
	assert.False(t, res.Success)
	assert.Equal(t, []string{"NOTYOURTURN"}, res.Codes)
}

func TestWebsocket(t *testing.T) {
	s, gameID, ann, _ := started(t)
	srv := httptest.NewServer(s.webHandler(zerolog.Nop()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + comms.EncodeConnectString(gameID, ann.ID)
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"comms"}})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	msg, err := readMessageWs(ctx, c)
	require.NoError(t, err)
	require.Equal(t, "connected", msg.Type())
	var cr comms.ConnectResponse
	require.NoError(t, comms.Decode(msg, &cr))
	require.Nil(t, cr.Err)
	assert.Equal(t, gameID, cr.GameID)

	req, err := comms.Encode("request 7 actions", ActionsInput{})
	require.NoError(t, err)
	require.NoError(t, sendDownWs(ctx, c, req))
	msg, err = readMessageWs(ctx, c)
	require.NoError(t, err)
	var actions []game.ActionView
	require.Nil(t, readReply(t, msg, "response:7", &actions))
	assert.Len(t, actions, 13)

	// game and player instead of a code
	url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?game=" + gameID + "&player=nobody"
	c2, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"comms"}})
	require.NoError(t, err)
	defer c2.Close(websocket.StatusNormalClosure, "")
	msg, err = readMessageWs(ctx, c2)
	require.NoError(t, err)
	cr = comms.ConnectResponse{}
	require.NoError(t, comms.Decode(msg, &cr))
	require.NotNil(t, cr.Err)
	assert.Equal(t, "UNKNOWNPLAYER", cr.Err.Code)

	r, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestGrpc(t *testing.T) {
	s, gameID, ann, bob := started(t)

	ln := bufconn.Listen(1 << 20)
	gs := s.newGrpcServer(zerolog.Nop())
	go gs.Serve(ln)
	defer gs.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return ln.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	tc := NewTableClient(conn)

	_, err = tc.GetRoundState(ctx, &GetRoundStateRequest{GameID: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	st, err := tc.GetRoundState(ctx, &GetRoundStateRequest{GameID: gameID})
	require.NoError(t, err)
	assert.Len(t, st.Deck, 41)

	res, err := tc.SubmitAction(ctx, &SubmitActionRequest{GameID: gameID, PlayerID: bob.ID, Payload: game.Payload{Effect: "pickup"}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"NOTYOURTURN"}, res.Codes)

	res, err = tc.SubmitAction(ctx, &SubmitActionRequest{GameID: gameID, PlayerID: ann.ID, Payload: game.Payload{Effect: "pickup"}})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Errors)

	acts, err := tc.GetActions(ctx, &GetActionsRequest{GameID: gameID})
	require.NoError(t, err)
	assert.Len(t, acts.Actions, 14)

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: tableServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)
}

func TestRunStops(t *testing.T) {
	s, _, _, _ := started(t)
	s.addrs = Addrs{Web: "127.0.0.1:0", TCP: "127.0.0.1:0", GRPC: "127.0.0.1:0"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestConnect(t *testing.T) {
	s, gameID, ann, _ := started(t)
	ctx := context.Background()

	pv, err := s.Connect(ctx, gameID, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", pv.Name)

	_, err = s.Connect(ctx, gameID, "nobody")
	assert.ErrorIs(t, err, game.ErrUnknownPlayer)

	_, err = s.Connect(ctx, "nope", ann.ID)
	assert.True(t, game.IsNotFound(err))
}
