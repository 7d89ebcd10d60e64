// Package capture talks to the face extractor sidecar and prepares camera
// frames for it. The sidecar detects faces in a frame and returns one
// 128-dimensional template per detected face.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/KunalGupta25/EduConnect/internal/facematch"
)

const defaultExtractorURL = "http://localhost:8000"

// ExtractorClient computes face templates using the extractor sidecar.
// Frames larger than maxImageSize on either axis are downscaled before
// upload; phone cameras produce frames far bigger than detection needs.
type ExtractorClient struct {
	baseURL      string
	maxImageSize int
	client       *http.Client
}

// NewExtractorClient creates a new extractor client. maxImageSize of zero
// disables downscaling.
func NewExtractorClient(baseURL string, maxImageSize int) *ExtractorClient {
	if baseURL == "" {
		baseURL = defaultExtractorURL
	}
	return &ExtractorClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		maxImageSize: maxImageSize,
		client:       &http.Client{},
	}
}

// Face is a single detected face.
type Face struct {
	FaceIndex int                `json:"face_index"`
	Template  facematch.Template `json:"template"`
	BBox      []float64          `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64            `json:"det_score"`
}

// ExtractResponse is the extractor's answer for one frame.
type ExtractResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// postMultipartImage constructs a multipart form with the frame data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *ExtractorClient) postMultipartImage(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(frame))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write frame data: %w", err)
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
		return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ExtractFaces detects faces in a frame and computes their templates.
func (c *ExtractorClient) ExtractFaces(ctx context.Context, frame []byte) (*ExtractResponse, error) {
	if c.maxImageSize > 0 {
		resized, err := ResizeFrame(frame, c.maxImageSize)
		if err != nil {
			return nil, fmt.Errorf("prepare frame: %w", err)
		}
		frame = resized
	}

	body, err := c.postMultipartImage(ctx, "/extract/face", frame)
	if err != nil {
		return nil, err
	}

	var extractResp ExtractResponse
	if err := json.Unmarshal(body, &extractResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	for _, face := range extractResp.Faces {
		if len(face.Template) != facematch.TemplateDim {
			return nil, fmt.Errorf("extractor returned %d-dimensional template, want %d",
				len(face.Template), facematch.TemplateDim)
		}
	}

	return &extractResp, nil
}

// detectMIMEType detects the MIME type from frame data
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
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
