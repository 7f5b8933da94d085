// Package vision provides the image web-detection lookup client.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// Annotator describes what an image shows and where it appears on the web.
type Annotator interface {
	Annotate(ctx context.Context, imageRef string) (string, error)
}

// Report is the annotation result handed to the orchestrator. It is embedded,
// serialized, into the synthetic follow-up turn.
type Report struct {
	URL      string   `json:"url,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

// Client is the Google Vision web-detection client.
type Client struct {
	service *vision.Service
}

var _ Annotator = (*Client)(nil)

// NewClient creates a Vision client authenticated by API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	service, err := vision.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}
	return &Client{service: service}, nil
}

// Annotate runs web detection on the referenced image. The ref may be a
// remote URL, a media-store file path, or an inline base64 payload.
func (c *Client) Annotate(ctx context.Context, imageRef string) (string, error) {
	image, err := buildImage(imageRef)
	if err != nil {
		return "", err
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    image,
			Features: []*vision.Feature{{Type: "WEB_DETECTION", MaxResults: 10}},
		}},
	}
	resp, err := c.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("annotate request failed: %w", err)
	}
	if len(resp.Responses) == 0 || resp.Responses[0].WebDetection == nil {
		return "", fmt.Errorf("no web detection for image")
	}
	return renderReport(resp.Responses[0].WebDetection)
}

func buildImage(imageRef string) (*vision.Image, error) {
	switch {
	case strings.HasPrefix(imageRef, "http") || strings.HasPrefix(imageRef, "gs:"):
		return &vision.Image{Source: &vision.ImageSource{ImageUri: imageRef}}, nil
	default:
		if data, err := os.ReadFile(imageRef); err == nil {
			return &vision.Image{Content: base64.StdEncoding.EncodeToString(data)}, nil
		}
		// Not a readable path, assume an inline base64 payload.
		if _, err := base64.StdEncoding.DecodeString(imageRef); err != nil {
			return nil, fmt.Errorf("image ref is neither a url, a file, nor base64")
		}
		return &vision.Image{Content: imageRef}, nil
	}
}

func renderReport(wd *vision.WebDetection) (string, error) {
	report := Report{}
	if len(wd.PagesWithMatchingImages) > 0 {
		report.URL = wd.PagesWithMatchingImages[0].Url
	}
	switch {
	case len(wd.FullMatchingImages) > 0:
		report.ImageURL = wd.FullMatchingImages[0].Url
	case len(wd.PartialMatchingImages) > 0:
		report.ImageURL = wd.PartialMatchingImages[0].Url
	case len(wd.VisuallySimilarImages) > 0:
		report.ImageURL = wd.VisuallySimilarImages[0].Url
	}
	for _, entity := range wd.WebEntities {
		if entity.Description != "" {
			report.Entities = append(report.Entities, entity.Description)
		}
	}
	if report.URL == "" && report.ImageURL == "" && len(report.Entities) == 0 {
		return "", fmt.Errorf("web detection returned no usable annotations")
	}
	out, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(out), nil
}
