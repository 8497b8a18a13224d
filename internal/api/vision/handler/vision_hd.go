package visionHandler

import (
	"VisionAid/internal/api/vision"
	contextPkg "VisionAid/pkg/context"
	"VisionAid/pkg/handlerUtil"
	"VisionAid/pkg/log"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var errUnexpected = errors.New("unexpected session failure")

func (h *VisionHandler) handleWebSocket(c *websocket.Conn) {
	sessionID, _ := c.Locals(SessionIDKey).(string)
	logger := h.log.WithField("session_id", sessionID)

	logger.Info("Vision WebSocket client connected")
	h.metrics.ActiveSessions.Inc()
	defer func() {
		h.metrics.ActiveSessions.Dec()
		logger.Info("Vision WebSocket client disconnected")
	}()

	c.SetPingHandler(func(data string) error {
		logger.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	ctx := contextPkg.WithSessionID(context.Background(), sessionID)
	throttle := NewThrottle(h.clock, h.cfg.MinProcessingInterval)

	for {
		if err := c.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
			logger.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Errorf("Vision WebSocket error: %v", err)
			} else {
				logger.Info("Vision WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logger.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		h.metrics.FramesReceived.Inc()

		if err := h.handleFrame(ctx, c, throttle, string(message), logger); err != nil {
			if stage, ok := vision.StageOf(err); ok && stage == vision.StageTransport {
				logger.Errorf("Error writing response: %v", err)
				break
			}

			traceID := log.ErrorWithTraceID(log.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}, "Closing vision session after unexpected error")
			h.closeWithError(c, traceID, logger)
			break
		}
	}
}

// handleFrame runs one text message through the throttle and the pipeline.
// Only transport and unexpected errors are returned; decode and detect
// failures are settled here.
func (h *VisionHandler) handleFrame(
	ctx context.Context,
	c *websocket.Conn,
	throttle *Throttle,
	payload string,
	logger *logrus.Entry,
) (err error) {
	now, ok := throttle.Allow()
	if !ok {
		h.metrics.FramesThrottled.Inc()
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errUnexpected, r)
		}
	}()

	resp, err := h.visionService.ProcessFrame(ctx, payload)
	if err != nil {
		stage, _ := vision.StageOf(err)
		switch stage {
		case vision.StageDecode:
			logger.Warnf("Dropping frame that could not be decoded: %v", err)
			return nil
		case vision.StageDetect:
			logger.Errorf("Detection failed, sending empty result: %v", err)
			resp = vision.EmptyResponse()
		default:
			return err
		}
	}

	body, err := jsoniter.Marshal(resp)
	if err != nil {
		return err
	}

	if err := c.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
		return vision.NewStageError(vision.StageTransport, err)
	}
	if err := c.WriteMessage(websocket.TextMessage, body); err != nil {
		return vision.NewStageError(vision.StageTransport, err)
	}
	if err := c.SetWriteDeadline(time.Time{}); err != nil {
		return vision.NewStageError(vision.StageTransport, err)
	}

	throttle.Mark(now)
	h.metrics.FramesProcessed.Inc()

	return nil
}

func (h *VisionHandler) closeWithError(c *websocket.Conn, traceID string, logger *logrus.Entry) {
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error, trace id "+traceID)
	if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		logger.Errorf("Error sending close frame: %v", err)
	}
}

func (h *VisionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.cfg.RequestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing vision detect request")

	var payload string

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		fileContent, err := file.Open()
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
		}
		defer fileContent.Close()

		payload, err = h.utils.ConvertFileToBase64(fileContent)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "convert_to_base64")
		}
	} else {
		var req vision.DetectRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, vision.ErrBadRequest, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		payload = req.Image
	}

	result, err := h.visionService.ProcessFrame(c, payload)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_frame")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":  requestID,
			"path":        ctx.Path(),
			"predictions": len(result.Predictions),
		}).Info("Vision detect successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}
