package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/fruit-shop/internal/httpc"
	"github.com/teslashibe/fruit-shop/internal/log"
)

// Default descriptor file names, relative to Source.BaseURL.
const (
	DefaultModelFile    = "model.onnx"
	DefaultMetadataFile = "metadata.json"
	DefaultImageSize    = 224
)

// Metadata is the classifier's metadata.json (Teachable Machine layout).
type Metadata struct {
	Labels      []string `json:"labels"`
	ImageSize   int      `json:"imageSize"`
	ModelName   string   `json:"modelName"`
	TimeStamp   string   `json:"timeStamp"`
	PackageName string   `json:"packageName"`
}

// ParseMetadata decodes and validates metadata.json.
func ParseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	if len(m.Labels) == 0 {
		return Metadata{}, ErrNoLabels
	}
	if m.ImageSize <= 0 {
		m.ImageSize = DefaultImageSize
	}
	return m, nil
}

// Source says where the two descriptor resources live.
type Source struct {
	// BaseURL is an http(s) URL or a local directory.
	BaseURL      string
	ModelFile    string
	MetadataFile string
}

func (s Source) withDefaults() Source {
	if s.ModelFile == "" {
		s.ModelFile = DefaultModelFile
	}
	if s.MetadataFile == "" {
		s.MetadataFile = DefaultMetadataFile
	}
	return s
}

func (s Source) remote() bool {
	return strings.HasPrefix(s.BaseURL, "http://") || strings.HasPrefix(s.BaseURL, "https://")
}

func (s Source) location(name string) string {
	if s.remote() {
		return strings.TrimSuffix(s.BaseURL, "/") + "/" + name
	}
	return filepath.Join(s.BaseURL, name)
}

// Descriptor is a fetched model plus its metadata.
type Descriptor struct {
	Model    []byte
	Metadata Metadata
}

// Fetch loads the model and metadata from src.
func Fetch(ctx context.Context, client *http.Client, src Source) (*Descriptor, error) {
	src = src.withDefaults()
	if src.BaseURL == "" {
		return nil, fmt.Errorf("classifier: model location not set")
	}

	read := func(name string) ([]byte, error) {
		loc := src.location(name)
		if src.remote() {
			return httpc.GetBytes(ctx, client, loc)
		}
		return os.ReadFile(loc)
	}

	metaBytes, err := read(src.MetadataFile)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	meta, err := ParseMetadata(metaBytes)
	if err != nil {
		return nil, err
	}

	model, err := read(src.ModelFile)
	if err != nil {
		return nil, fmt.Errorf("fetch model: %w", err)
	}
	if len(model) == 0 {
		return nil, ErrEmptyModel
	}

	log.Info("classifier descriptors loaded",
		"source", src.BaseURL,
		"model_bytes", len(model),
		"labels", meta.Labels,
		"image_size", meta.ImageSize)

	return &Descriptor{Model: model, Metadata: meta}, nil
}
