// Package descriptor talks to the external face model service that turns a camera frame into a face descriptor.
package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/metrics"
)

const (
	defaultServiceURL   = "http://localhost:8000"
	defaultTimeout      = 30 * time.Second
	defaultMaxImageSize = constants.MaxImageSize

	healthEndpoint = "/health"
	faceEndpoint   = "/embed/face"
)

// ErrServiceUnavailable is returned by Init when the model service does not answer its health check.
var ErrServiceUnavailable = errors.New("face descriptor service unavailable")

// Config configures a descriptor Client.
type Config struct {
	URL          string
	Timeout      time.Duration
	MaxImageSize int // frames larger than this (either side) are downscaled before upload
}

// Client computes face descriptors using the model service.
// A Client is created by Init and is safe for concurrent use.
type Client struct {
	baseURL      string
	maxImageSize int
	client       *http.Client
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Observation is the result of describing one camera frame.
// Descriptor is nil when no face was detected.
type Observation struct {
	Descriptor facematch.Descriptor
	DetScore   float64
	BBox       []float64 // [x1, y1, x2, y2] relative to the frame (0-1)
	FacesCount int
	Issue      Issue
}

// HasFace reports whether a usable descriptor was produced.
func (o *Observation) HasFace() bool {
	return len(o.Descriptor) > 0
}

// Init creates a client and verifies the model service is reachable.
// Callers own the returned Client; there is no package-level instance.
func Init(ctx context.Context, cfg Config) (*Client, error) {
	c := newClient(cfg)
	if err := c.Health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return c, nil
}

func newClient(cfg Config) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxSize := cfg.MaxImageSize
	if maxSize <= 0 {
		maxSize = defaultMaxImageSize
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		maxImageSize: maxSize,
		client:       &http.Client{Timeout: timeout},
	}
}

// Health checks that the model service answers.
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.health(ctx)
	metrics.RecordDescriptorRequest(healthEndpoint, time.Since(start), err)
	return err
}

func (c *Client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Describe detects faces in an image and returns the descriptor of the most confident one,
// together with its frame quality grade.
func (c *Client) Describe(ctx context.Context, imageData []byte) (*Observation, error) {
	img, err := prepareImage(imageData, c.maxImageSize)
	if err != nil {
		return nil, err
	}

	faces, err := c.ComputeFaceEmbeddings(ctx, img.data)
	if err != nil {
		return nil, err
	}

	obs := &Observation{FacesCount: len(faces.Faces), Issue: IssueNoFace}
	best := bestFace(faces.Faces)
	if best == nil {
		return obs, nil
	}

	obs.Descriptor = facematch.NewDescriptor(best.Embedding)
	obs.DetScore = best.DetScore
	obs.BBox = ConvertPixelBBoxToRelative(best.BBox, img.width, img.height)
	obs.Issue = CheckFrame(best.BBox, img.width, img.height)
	return obs, nil
}

// bestFace returns the detection with the highest detection score that carries an embedding.
func bestFace(faces []FaceDetection) *FaceDetection {
	var best *FaceDetection
	for i := range faces {
		if len(faces[i].Embedding) == 0 {
			continue
		}
		if best == nil || faces[i].DetScore > best.DetScore {
			best = &faces[i]
		}
	}
	return best
}

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (c *Client) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	start := time.Now()
	body, err := c.postMultipartImage(ctx, faceEndpoint, imageData)
	metrics.RecordDescriptorRequest(faceEndpoint, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}
