package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"todosync/internal/backend/appsync"
	"todosync/internal/service"
)

// Subprotocol is the websocket subprotocol of the realtime endpoint.
const Subprotocol = "graphql-ws"

// Settings are the timeouts of a feed connection.
type Settings struct {
	HandshakeTimeout time.Duration
	// AckTimeout bounds the wait for connection_ack and start_ack.
	AckTimeout   time.Duration
	WriteTimeout time.Duration
	// KeepAliveTimeout is the read deadline used when the server does not
	// announce one in connection_ack.
	KeepAliveTimeout time.Duration
}

// DefaultSettings returns the settings used by New when none are given.
func DefaultSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 5 * time.Second,
		AckTimeout:       10 * time.Second,
		WriteTimeout:     5 * time.Second,
		KeepAliveTimeout: 5 * time.Minute,
	}
}

// Client implements Feed with one websocket connection per subscription.
type Client struct {
	host        string
	realtimeURL string
	tokens      appsync.TokenSource
	settings    *Settings
}

// New creates a feed client. graphqlURL is the HTTP endpoint whose host is
// presented in the authorization header; realtimeURL is the websocket
// endpoint.
func New(graphqlURL, realtimeURL string, tokens appsync.TokenSource, settings *Settings) *Client {
	if settings == nil {
		settings = DefaultSettings()
	}
	host := graphqlURL
	if u, err := url.Parse(graphqlURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Client{
		host:        host,
		realtimeURL: realtimeURL,
		tokens:      tokens,
		settings:    settings,
	}
}

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ackPayload struct {
	ConnectionTimeoutMs int64 `json:"connectionTimeoutMs"`
}

type startPayload struct {
	Data       string `json:"data"`
	Extensions struct {
		Authorization map[string]string `json:"authorization"`
	} `json:"extensions"`
}

type dataPayload struct {
	Data json.RawMessage `json:"data"`
}

type errorPayload struct {
	Errors []struct {
		Message   string `json:"message"`
		ErrorType string `json:"errorType"`
	} `json:"errors"`
}

func (p errorPayload) String() string {
	if len(p.Errors) == 0 {
		return "unknown error"
	}
	msgs := make([]string, 0, len(p.Errors))
	for _, e := range p.Errors {
		if e.ErrorType != "" {
			msgs = append(msgs, e.ErrorType+": "+e.Message)
		} else {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// Subscribe opens a connection, registers the topic's subscription for the
// user and starts delivering events to h.
func (c *Client) Subscribe(ctx context.Context, topic Topic, username string, h Handlers) (Subscription, error) {
	query := topic.query()
	if query == "" {
		return nil, fmt.Errorf("unknown topic %d: %w", int(topic), service.ErrFeed)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	connectURL, err := c.connectURL(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", topic, err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.settings.HandshakeTimeout,
		Subprotocols:     []string{Subprotocol},
	}
	ws, _, err := dialer.DialContext(ctx, connectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %v: %w", topic, err, service.ErrFeed)
	}

	success := false
	defer func() {
		if !success {
			ws.Close()
		}
	}()

	sub := &subscription{
		topic:    topic,
		id:       uuid.NewString(),
		ws:       ws,
		handlers: h,
		settings: c.settings,
		done:     make(chan struct{}),
	}

	keepAlive, err := sub.init()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", topic, err)
	}
	sub.keepAlive = keepAlive

	if err := sub.start(query, username, token, c.host); err != nil {
		return nil, fmt.Errorf("%s: %w", topic, err)
	}

	success = true
	glog.V(1).Infof("[feed]%s subscribed %s", topic, sub.id)
	go sub.run()
	return sub, nil
}

// connectURL encodes the authorization header into the query string the
// way the realtime endpoint expects it.
func (c *Client) connectURL(token string) (string, error) {
	header, err := json.Marshal(map[string]string{
		"host":          c.host,
		"Authorization": token,
	})
	if err != nil {
		return "", err
	}

	u, err := url.Parse(c.realtimeURL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	q.Set("header", base64.StdEncoding.EncodeToString(header))
	q.Set("payload", base64.StdEncoding.EncodeToString([]byte("{}")))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type subscription struct {
	topic     Topic
	id        string
	ws        *websocket.Conn
	handlers  Handlers
	settings  *Settings
	keepAlive time.Duration

	writeMu  sync.Mutex
	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// init performs the connection handshake and returns the keepalive
// timeout announced by the server.
func (s *subscription) init() (time.Duration, error) {
	if err := s.write(message{Type: "connection_init"}); err != nil {
		return 0, fmt.Errorf("connection_init: %v: %w", err, service.ErrFeed)
	}

	deadline := time.Now().Add(s.settings.AckTimeout)
	for {
		m, err := s.read(deadline)
		if err != nil {
			return 0, fmt.Errorf("connection_ack: %v: %w", err, service.ErrFeed)
		}
		switch m.Type {
		case "connection_ack":
			var ack ackPayload
			if len(m.Payload) > 0 {
				json.Unmarshal(m.Payload, &ack)
			}
			if ack.ConnectionTimeoutMs > 0 {
				return time.Duration(ack.ConnectionTimeoutMs) * time.Millisecond, nil
			}
			return s.settings.KeepAliveTimeout, nil
		case "ka":
		case "connection_error", "error":
			return 0, fmt.Errorf("connection rejected: %s: %w", decodeError(m.Payload), service.ErrFeed)
		default:
			glog.V(2).Infof("[feed]%s unexpected %s before ack", s.topic, m.Type)
		}
	}
}

// start registers the subscription and waits for start_ack.
func (s *subscription) start(query, username, token, host string) error {
	data, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": map[string]string{"input": username},
	})
	if err != nil {
		return err
	}
	var p startPayload
	p.Data = string(data)
	p.Extensions.Authorization = map[string]string{
		"Authorization": token,
		"host":          host,
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	if err := s.write(message{ID: s.id, Type: "start", Payload: payload}); err != nil {
		return fmt.Errorf("start: %v: %w", err, service.ErrFeed)
	}

	deadline := time.Now().Add(s.settings.AckTimeout)
	for {
		m, err := s.read(deadline)
		if err != nil {
			return fmt.Errorf("start_ack: %v: %w", err, service.ErrFeed)
		}
		switch m.Type {
		case "start_ack":
			return nil
		case "ka":
		case "error", "connection_error":
			return fmt.Errorf("start rejected: %s: %w", decodeError(m.Payload), service.ErrFeed)
		default:
			glog.V(2).Infof("[feed]%s unexpected %s before start_ack", s.topic, m.Type)
		}
	}
}

// run reads messages until the subscription stops or fails.
func (s *subscription) run() {
	defer close(s.done)
	defer s.ws.Close()

	for {
		m, err := s.read(time.Now().Add(s.keepAlive))
		if err != nil {
			s.fail(fmt.Errorf("%s: read: %v: %w", s.topic, err, service.ErrFeed))
			return
		}

		switch m.Type {
		case "ka":
			glog.V(2).Infof("[feed]%s ka", s.topic)
		case "data":
			if m.ID != s.id {
				continue
			}
			var p dataPayload
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				glog.Infof("[feed]%s drop event: %s", s.topic, err)
				continue
			}
			if s.stopped.Load() {
				return
			}
			glog.V(2).Infof("[feed]%s <- %s", s.topic, p.Data)
			if err := dispatch(s.topic, p.Data, s.handlers); err != nil {
				glog.Infof("[feed]%s drop event: %s", s.topic, err)
			}
		case "error", "connection_error":
			s.fail(fmt.Errorf("%s: %s: %w", s.topic, decodeError(m.Payload), service.ErrFeed))
			return
		case "complete":
			s.fail(fmt.Errorf("%s: completed by server: %w", s.topic, service.ErrFeed))
			return
		default:
			glog.V(2).Infof("[feed]%s other=%s", s.topic, m.Type)
		}
	}
}

// fail reports err unless the subscription was stopped by the client.
func (s *subscription) fail(err error) {
	if s.stopped.Load() {
		return
	}
	glog.Infof("[feed]subscription error: %s", err)
	if s.handlers.Error != nil {
		s.handlers.Error(err)
	}
}

// Unsubscribe sends stop, closes the connection and waits for the reader.
// It must not be called from a handler.
func (s *subscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if err := s.write(message{ID: s.id, Type: "stop"}); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			glog.V(2).Infof("[feed]%s stop: %s", s.topic, err)
		}
		s.ws.Close()
		<-s.done
		glog.V(1).Infof("[feed]%s unsubscribed %s", s.topic, s.id)
	})
}

func (s *subscription) write(m message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ws.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
	return s.ws.WriteMessage(websocket.TextMessage, b)
}

// read returns the next decodable message. Frames that are not valid
// messages are dropped.
func (s *subscription) read(deadline time.Time) (message, error) {
	s.ws.SetReadDeadline(deadline)
	for {
		_, b, err := s.ws.ReadMessage()
		if err != nil {
			return message{}, err
		}
		var m message
		if err := json.Unmarshal(b, &m); err != nil {
			glog.Infof("[feed]%s drop frame: %s", s.topic, err)
			continue
		}
		return m, nil
	}
}

func decodeError(payload json.RawMessage) string {
	var p errorPayload
	if len(payload) > 0 {
		json.Unmarshal(payload, &p)
	}
	return p.String()
}
