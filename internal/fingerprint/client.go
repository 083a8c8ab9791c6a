package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/facematch"
	"github.com/kozaktomas/faceverify/internal/verify"
)

const defaultEmbeddingURL = "http://localhost:8000"

// Client talks to the embedding server. It serves as a face Detector, a
// Verifier and an Embedder.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a new embedding server client
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if model == "" {
		model = constants.DefaultModelName
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

// Model returns the model name sent with verify requests
func (c *Client) Model() string {
	return c.model
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// verifyResponse represents the response from the verify endpoint
type verifyResponse struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
}

// formPart is one file of a multipart request.
type formPart struct {
	field string
	data  []byte
}

// post constructs a multipart form with the given files and fields and posts it to the endpoint.
func (c *Client) post(ctx context.Context, endpoint string, files []formPart, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="%s.jpg"`, f.field, f.field))
		h.Set("Content-Type", detectMIMEType(f.data))
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, fmt.Errorf("failed to write image data: %w", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
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

// faces posts an image to the face endpoint.
func (c *Client) faces(ctx context.Context, img image.Image, detect bool) (*FaceResponse, error) {
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	var fields map[string]string
	if !detect {
		fields = map[string]string{"detect": "false"}
	}
	body, err := c.post(ctx, "/embed/face", []formPart{{field: "file", data: data}}, fields)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}

// Detect returns the face regions the server finds in a grayscale image.
// Boxes the server returns in an unusable shape are skipped.
func (c *Client) Detect(ctx context.Context, img *image.Gray) ([]facematch.Region, error) {
	faceResp, err := c.faces(ctx, img, true)
	if err != nil {
		return nil, err
	}

	regions := make([]facematch.Region, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		if r, ok := facematch.RegionFromBBox(f.BBox); ok {
			regions = append(regions, r)
		}
	}
	return regions, nil
}

// Embed returns the embedding of an already cropped face.
func (c *Client) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	faceResp, err := c.faces(ctx, img, false)
	if err != nil {
		return nil, err
	}
	if len(faceResp.Faces) == 0 || len(faceResp.Faces[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return faceResp.Faces[0].Embedding, nil
}

// Verify asks the server to compare two face images.
func (c *Client) Verify(ctx context.Context, a, b image.Image, opts verify.Options) (*verify.Result, error) {
	dataA, err := encodeJPEG(a)
	if err != nil {
		return nil, err
	}
	dataB, err := encodeJPEG(b)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "/verify",
		[]formPart{{field: "img1", data: dataA}, {field: "img2", data: dataB}},
		map[string]string{
			"model_name":        c.model,
			"enforce_detection": strconv.FormatBool(opts.EnforceDetection),
		})
	if err != nil {
		return nil, err
	}

	var vr verifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &verify.Result{
		Verified:  vr.Verified,
		Distance:  vr.Distance,
		Threshold: vr.Threshold,
		Model:     vr.Model,
	}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
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
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
