package websocket

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// Handler upgrades "/ws". It expects an auth middleware to have set "user_id".
func (s *Server) Handler(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	userID := fmt.Sprint(c.Get("user_id"))
	client := NewClient(conn, userID, s.submit)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()

	// Wait for the connection to close.
	<-client.Context().Done()

	return nil
}
