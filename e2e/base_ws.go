package e2e

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWSSuite struct {
	suite.Suite
	Config Config
}

type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWSSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ChatAddr == "" {
		s.T().Skip("CHAT_ADDR not set")
	}
}

// Client is a single websocket connection with frame logging.
type Client struct {
	s  *BaseWSSuite
	ws *websocket.Conn
}

// WithClient dials /chat within a contextual test step and consumes the greeting.
func (s *BaseWSSuite) WithClient(name string, fn func(c *Client)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ws, resp, err := websocket.DefaultDialer.Dial(s.Config.ChatAddr+"/chat", nil)
	s.Require().NoError(err, "Failed to connect to chat server at "+s.Config.ChatAddr)
	_ = resp.Body.Close()
	defer ws.Close()

	c := &Client{s: s, ws: ws}
	s.Require().Equal("info", c.Read().Type)
	fn(c)
}

func (c *Client) Send(kind string, data any) {
	start := time.Now()
	err := c.ws.WriteJSON(map[string]any{"type": kind, "data": data})
	c.s.T().Logf("SEND %s in %v", kind, time.Since(start))
	if c.s.Config.DebugJSON {
		body, _ := json.MarshalIndent(data, "", "  ")
		c.s.T().Log(string(body))
	}
	c.s.Require().NoError(err)
}

func (c *Client) Read() Frame {
	c.s.Require().NoError(c.ws.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var frame Frame
	c.s.Require().NoError(c.ws.ReadJSON(&frame))
	c.s.T().Logf("RECV %s", frame.Type)
	if c.s.Config.DebugJSON {
		c.s.T().Log(string(frame.Data))
	}
	return frame
}

// Authorize sends token and requires a successful answer.
func (c *Client) Authorize(token string) {
	c.Send("authorization", map[string]any{"token": token})
	frame := c.Read()
	c.s.Require().Equal("authorization_response", frame.Type)
	c.s.Require().JSONEq(`{"status":"success"}`, string(frame.Data))
}
