// Package remote calls an HTTP detection service that speaks the
// detector wire format.
package remote

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

const (
	DefaultTimeout = 5 * time.Second
	detectPath     = "/detect"
)

type Detector struct {
	client *resty.Client
	url    string
}

func New(baseURL string, timeout time.Duration) (*Detector, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote detector URL not configured")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(jsoniter.Marshal).
		SetJSONUnmarshaler(jsoniter.Unmarshal)

	return &Detector{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + detectPath,
	}, nil
}

func (d *Detector) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	reqBody, err := detector.NewWireRequest(frame, confThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrDetectionFailed, err)
	}

	var respBody detector.WireResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		SetError(&respBody).
		Post(d.url)
	if err != nil {
		return nil, fmt.Errorf("%w: request error: %v", detector.ErrDetectionFailed, err)
	}

	if resp.IsError() {
		if respBody.Error == "" {
			respBody.Error = resp.Status()
		}
		return nil, fmt.Errorf("%w: server returned %s: %s", detector.ErrDetectionFailed, resp.Status(), respBody.Error)
	}

	return respBody.ToDetections()
}

func (d *Detector) Close() error {
	return nil
}
