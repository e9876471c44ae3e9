package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/matte"
)

// Client calls an external image model over HTTP. The request tells the
// model what to draw and which backdrop color to draw it against; the
// response body is the encoded scene. Failed generations are surfaced as
// errors, never retried here.
type Client struct {
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

// NewClient returns a generator talking to endpoint. A zero timeout means
// no client-side limit beyond the request context.
func NewClient(endpoint string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

type generateRequest struct {
	Instruction string `json:"instruction"`
	Background  string `json:"background"`
}

func (c *Client) Generate(ctx context.Context, instruction string, key matte.KeyColor) (image.Image, error) {
	payload, err := json.Marshal(generateRequest{
		Instruction: instruction,
		Background:  key.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("imagegen: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("requesting scene", "endpoint", c.endpoint, "background", key.Hex())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagegen: call %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("imagegen: %s returned %s: %s", c.endpoint, resp.Status, strings.TrimSpace(string(body)))
	}

	img, err := codec.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagegen: decode response: %w", err)
	}
	return img, nil
}
