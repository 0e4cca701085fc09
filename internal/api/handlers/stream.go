package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StreamEvents handles GET /events, a Server-Sent Events feed of every
// committed audit event (spec.md §5 live broadcast). A lagging client
// receives a "gap" event instead of ever blocking a publisher.
func (s *Server) StreamEvents(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	_ = op

	sub := s.Hub.Subscribe()
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w gin.ResponseWriter) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			if ev.Gap {
				fmt.Fprint(w, "event: gap\ndata: {}\n\n")
				return true
			}
			payload, err := json.Marshal(ev.Audit)
			if err != nil {
				return true
			}
			fmt.Fprintf(w, "event: audit\ndata: %s\n\n", payload)
			return true
		}
	})
}
