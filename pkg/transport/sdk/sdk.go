// Package sdk implements the SDK transport: LM Studio's websocket API, as
// spoken by the official client libraries. It can attach an image to the
// user message.
package sdk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/pkg/imageprep"
	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/logger"
	"github.com/papercomputeco/lmnode/pkg/transport"
)

// Name identifies the transport in logs and responses.
const Name = "sdk"

var _ transport.Transport = (*Transport)(nil)

// Config is the SDK transport configuration.
type Config struct {
	// ClientIdentifier is sent during the handshake. A random one is
	// generated when empty.
	ClientIdentifier string

	// Image controls how attached images are re-encoded before upload.
	Image imageprep.Options
}

// Transport talks to LM Studio over websockets. It holds no connection
// between calls.
type Transport struct {
	config Config
}

// New creates a Transport.
func New(config Config) *Transport {
	if config.ClientIdentifier == "" {
		config.ClientIdentifier = "lmnode-" + uuid.NewString()
	}
	return &Transport{config: config}
}

func (t *Transport) Name() string { return Name }

func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{Images: true, RequiresInstall: true}
}

func (t *Transport) auth() authPacket {
	return authPacket{
		AuthVersion:      1,
		ClientIdentifier: t.config.ClientIdentifier,
		ClientPasskey:    uuid.NewString(),
	}
}

// Complete runs one prediction. A malformed image is skipped and the
// prediction continues with text only.
func (t *Transport) Complete(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	log := logger.FromContext(ctx)
	base := req.BaseURL()

	var (
		file     *fileHandle
		fileName string
	)
	if req.HasImage() {
		img, err := imageprep.Prepare(req.Image, t.config.Image)
		switch {
		case errors.Is(err, imageprep.ErrMalformed):
			log.Info("could not decode image, sending text only", zap.Error(err))
		case err != nil:
			return nil, fmt.Errorf("prepare image: %w", err)
		default:
			log.Info("prepared image",
				zap.String("source_format", img.SourceFormat),
				zap.Int("width", img.Width),
				zap.Int("height", img.Height),
				zap.Bool("resized", img.Resized),
				zap.Int("bytes", len(img.Data)),
			)
			if file, err = t.upload(ctx, base, img); err != nil {
				return nil, err
			}
			fileName = img.Name
		}
	}

	c, err := dial(ctx, base, namespaceLLM, t.auth())
	if err != nil {
		return nil, err
	}
	defer c.close()

	log.Info("starting prediction",
		zap.String("transport", Name),
		zap.String("model", req.ModelID),
		zap.Bool("image", file != nil),
	)

	start := time.Now()
	res, err := c.predict(ctx, newPredictParameter(req, file, fileName), func(f llm.Fragment) {
		log.Debug("fragment", zap.String("content", logger.Preview(f.Content, 60)))
	})
	if err != nil {
		return nil, err
	}

	log.Info("prediction finished",
		zap.Int("fragments", res.fragments),
		zap.Duration("duration", time.Since(start)),
	)
	if len(res.modelInfo) > 0 {
		log.Info("model info", zap.Any("model_info", res.modelInfo))
	}

	return &llm.Completion{
		Text:      res.text,
		Stats:     res.stats.stats(),
		Transport: Name,
		Model:     req.ModelID,
		ImageSent: file != nil,
		Fragments: res.fragments,
		ModelInfo: res.modelInfo,
	}, nil
}

// upload sends the prepared image over the files namespace.
func (t *Transport) upload(ctx context.Context, base string, img *imageprep.Image) (*fileHandle, error) {
	c, err := dial(ctx, base, namespaceFiles, t.auth())
	if err != nil {
		return nil, err
	}
	defer c.close()

	var file fileHandle
	if err := c.call(ctx, "uploadFileBase64", uploadParameter{
		Name:          img.Name,
		ContentBase64: base64.StdEncoding.EncodeToString(img.Data),
	}, &file); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if file.FileType == "" {
		file.FileType = "image"
	}
	return &file, nil
}
