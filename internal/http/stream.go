package http

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lpr-service/internal/realtime"
)

const defaultKeepAlive = 25 * time.Second

// Stream serves hub events to operator consoles as Server-Sent Events.
type Stream struct {
	hub       *realtime.Hub
	keepAlive time.Duration
	log       zerolog.Logger
}

func NewStream(hub *realtime.Hub, keepAlive time.Duration, log zerolog.Logger) *Stream {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &Stream{hub: hub, keepAlive: keepAlive, log: log}
}

func (s *Stream) Serve(c *gin.Context) {
	events, leave := s.hub.Subscribe()
	defer leave()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	s.log.Debug().Int("subscribers", s.hub.Subscribers()).Msg("stream client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Topic, ev.Data)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})

	s.log.Debug().Msg("stream client disconnected")
}
