package websocketPkg

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const DefaultURL = "ws://localhost:8000/api/v1/detect/ws"

// IWebsocket is a detector backed by a long-lived websocket to an external
// AI service. One request is in flight at a time.
type IWebsocket interface {
	detector.Detector
	IsConnected() bool
	Reconnect() error
}

type webSocketClient struct {
	url          string
	log          *logrus.Logger
	conn         *websocket.Conn
	mu           sync.Mutex
	requestMu    sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewAIWebSocketClient(url string, logger *logrus.Logger) IWebsocket {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := &webSocketClient{
		url:          url,
		log:          logger,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if err := c.connect(false); err != nil {
		c.log.Warnf("Initial connection to detection service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Infof("Successfully connected to detection service at %s", c.url)
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Reconnect replaces the current connection with a fresh one.
func (c *webSocketClient) Reconnect() error {
	return c.connect(true)
}

func (c *webSocketClient) connect(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if !force {
			return nil
		}
		c.conn.Close()
		c.conn = nil
	}

	c.log.Debugf("Connecting to detection service at %s", c.url)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for detection service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("not connected to detection service")
	}
	return c.conn, nil
}

// drop forgets conn if it is still the current connection.
func (c *webSocketClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *webSocketClient) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	req, err := detector.NewWireRequest(frame, confThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrDetectionFailed, err)
	}
	payload, err := jsoniter.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrDetectionFailed, err)
	}

	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.getConnection()
	if err != nil {
		if err := c.connect(false); err != nil {
			return nil, fmt.Errorf("%w: cannot connect to detection service: %v", detector.ErrDetectionFailed, err)
		}
		conn, err = c.getConnection()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", detector.ErrDetectionFailed, err)
		}
	}

	conn.SetWriteDeadline(deadline(ctx, c.writeTimeout))

	c.log.Debugf("Sending frame of size: %d bytes", len(payload))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("%w: error sending frame: %v", detector.ErrDetectionFailed, err)
	}

	conn.SetReadDeadline(deadline(ctx, c.readTimeout))

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("%w: error reading response: %v", detector.ErrDetectionFailed, err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var resp detector.WireResponse
	if err := jsoniter.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling response: %v", detector.ErrMalformedOutput, err)
	}

	return resp.ToDetections()
}
