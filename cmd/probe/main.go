// Command probe streams an image file to a running server's websocket and
// prints what the server would speak for each reply.
package main

import (
	"VisionAid/internal/api/vision"
	"VisionAid/pkg/imagecodec"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

const (
	flagURL      = "url"
	flagImage    = "image"
	flagCount    = "count"
	flagInterval = "interval"
	flagTimeout  = "timeout"
)

type probeConfig struct {
	URL      string
	Payload  string
	Count    int
	Interval time.Duration
	Timeout  time.Duration
}

func main() {
	app := &cli.App{
		Name:  "probe",
		Usage: "send an image to a vision server and print the spoken results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagURL,
				Value: "ws://localhost:3000/ws",
				Usage: "websocket endpoint of the server",
			},
			&cli.StringFlag{
				Name:     flagImage,
				Aliases:  []string{"i"},
				Required: true,
				Usage:    "image `FILE` to send",
			},
			&cli.IntFlag{
				Name:  flagCount,
				Value: 5,
				Usage: "number of frames to send",
			},
			&cli.DurationFlag{
				Name:  flagInterval,
				Value: 250 * time.Millisecond,
				Usage: "delay between frames",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: 5 * time.Second,
				Usage: "how long to wait for each reply",
			},
		},
		Action: func(c *cli.Context) error {
			payload, err := loadPayload(c.String(flagImage))
			if err != nil {
				return err
			}
			return probe(c.Context, probeConfig{
				URL:      c.String(flagURL),
				Payload:  payload,
				Count:    c.Int(flagCount),
				Interval: c.Duration(flagInterval),
				Timeout:  c.Duration(flagTimeout),
			}, c.App.Writer)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadPayload(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	img, err := imagecodec.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return imagecodec.EncodeDataURL(img)
}

func describe(resp *vision.FrameResponse) string {
	if len(resp.Predictions) == 0 {
		return "nothing detected"
	}
	p := resp.Predictions[0]
	return fmt.Sprintf("%s, %.1f m, %s", p.Class, p.Distance, p.Direction.Phrase())
}

// probe sends cfg.Count frames. Frames the server throttles get no reply
// and are reported as such once cfg.Timeout passes.
func probe(ctx context.Context, cfg probeConfig, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}
	defer conn.Close()

	for i := 0; i < cfg.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(cfg.Payload)); err != nil {
			return fmt.Errorf("error sending frame %d: %w", i+1, err)
		}

		if err := conn.SetReadDeadline(time.Now().Add(cfg.Timeout)); err != nil {
			return err
		}
		_, message, err := conn.ReadMessage()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			fmt.Fprintf(out, "frame %d: no reply (throttled)\n", i+1)
			// gorilla connections are unusable after a read timeout
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading reply %d: %w", i+1, err)
		}

		var resp vision.FrameResponse
		if err := jsoniter.Unmarshal(message, &resp); err != nil {
			return fmt.Errorf("error decoding reply %d: %w", i+1, err)
		}
		fmt.Fprintf(out, "frame %d: %s\n", i+1, describe(&resp))
	}

	return nil
}
