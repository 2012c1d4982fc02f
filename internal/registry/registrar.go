// Package registry registers reference images with the remote service and
// guarantees each distinct image is uploaded at most once per run.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cinegen/cinegen/internal/domain"
)

// MaxReferences bounds how many reference images one run may carry.
const MaxReferences = 5

// Uploader is the slice of the remote client the registrar needs.
type Uploader interface {
	CreateInitImage(ctx context.Context, data []byte) (string, error)
}

// Registrar caches remote ids by image content hash, so re-registering the
// same bytes reuses the earlier upload. Concurrent registrations of the same
// image collapse into a single upload call.
type Registrar struct {
	uploader Uploader
	ids      *gocache.Cache
	group    singleflight.Group
	logger   zerolog.Logger
}

func New(uploader Uploader, logger zerolog.Logger) *Registrar {
	return &Registrar{
		uploader: uploader,
		ids:      gocache.New(gocache.NoExpiration, 0),
		logger:   logger,
	}
}

// Register returns the remote id for the image, uploading it only if this
// content has not been registered during this run.
func (r *Registrar) Register(ctx context.Context, ref domain.ReferenceImage) (string, error) {
	key := contentKey(ref.Data)
	if id, ok := r.ids.Get(key); ok {
		return id.(string), nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		if id, ok := r.ids.Get(key); ok {
			return id.(string), nil
		}
		id, err := r.uploader.CreateInitImage(ctx, ref.Data)
		if err != nil {
			return nil, err
		}
		r.ids.Set(key, id, gocache.NoExpiration)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// RegisterAll registers the references in order and returns the ones that
// succeeded with their RemoteID populated. A failed upload is logged and the
// image is simply left out of conditioning.
func (r *Registrar) RegisterAll(ctx context.Context, refs []domain.ReferenceImage) []domain.ReferenceImage {
	registered := make([]domain.ReferenceImage, 0, len(refs))
	for _, ref := range refs {
		id, err := r.Register(ctx, ref)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("tag", string(ref.Tag)).
				Str("description", ref.Description).
				Msg("reference registration failed, continuing without it")
			continue
		}
		ref.RemoteID = id
		registered = append(registered, ref)
	}
	return registered
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
