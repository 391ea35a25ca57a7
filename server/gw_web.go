package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/lastcard/comms"
	"github.com/undeconstructed/lastcard/game"
)

func runWebGateway(ctx context.Context, server *Server, addr string) error {
	log := log.With().Str("gw", "web").Logger()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Info().Msgf("web listening on http://%v", ln.Addr())

	s := &http.Server{
		Handler:           server.webHandler(log),
		ReadHeaderTimeout: time.Second * 10,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	err = s.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (server *Server) webHandler(log zerolog.Logger) http.Handler {
	rh := restHandler{
		server: server,
		log:    log,
	}

	ch := commsHandler{
		server: server,
		log:    log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	a := r.Group("/api")
	a.POST("/games", rh.makeGame)
	a.GET("/games/:id", rh.getGame)
	a.GET("/games/:id/actions", rh.getActions)
	a.POST("/games/:id/players", rh.join)
	a.PUT("/games/:id/players/:pid/ready", rh.ready)
	a.POST("/games/:id/players/:pid/actions", rh.submit)
	r.GET("/ws", ch.serveWS)

	return r
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

type restHandler struct {
	server *Server
	log    zerolog.Logger
}

// fail writes err with a status that fits it.
func (rh *restHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case game.IsNotFound(err):
		status = http.StatusNotFound
	case game.IsValidation(err):
		status = http.StatusBadRequest
	case game.IsState(err):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	default:
		rh.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, errorOutput{Error: comms.WrapError(err)})
}

func (rh *restHandler) makeGame(c *gin.Context) {
	g, err := rh.server.table.CreateGame(c.Request.Context())
	if err != nil {
		rh.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MakeGameOutput{ID: g.ID})
}

func (rh *restHandler) getGame(c *gin.Context) {
	st, err := rh.server.table.RoundState(c.Request.Context(), c.Param("id"))
	if err != nil {
		rh.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (rh *restHandler) getActions(c *gin.Context) {
	var after int64
	if s := c.Query("after"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			rh.fail(c, game.ErrBadRequest)
			return
		}
		after = n
	}

	actions, err := rh.server.table.Actions(c.Request.Context(), c.Param("id"), after)
	if err != nil {
		rh.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, actions)
}

func (rh *restHandler) join(c *gin.Context) {
	var in JoinInput
	if err := c.ShouldBindJSON(&in); err != nil {
		rh.fail(c, game.ErrBadRequest)
		return
	}

	gameID := c.Param("id")
	p, err := rh.server.table.Join(c.Request.Context(), gameID, in.Nickname, in.Role)
	if err != nil {
		rh.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, JoinOutput{Player: p, Code: comms.EncodeConnectString(gameID, p.ID)})
}

func (rh *restHandler) ready(c *gin.Context) {
	res, err := rh.server.table.Ready(c.Request.Context(), c.Param("id"), c.Param("pid"))
	if err != nil {
		rh.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (rh *restHandler) submit(c *gin.Context) {
	var p game.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		rh.fail(c, game.ErrBadRequest)
		return
	}

	res, err := rh.server.table.SubmitAction(c.Request.Context(), c.Param("id"), c.Param("pid"), p)
	if err != nil {
		rh.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
