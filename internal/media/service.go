package media

import (
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service validates and stores uploads and serves them back out.
type Service interface {
	// Upload checks the payload against the whitelist and size caps and
	// persists it under a fresh key. declaredMIME may be empty; when
	// set it must agree with the sniffed type.
	Upload(data []byte, declaredMIME string) (*Upload, error)

	// Open returns a stored blob for serving.
	Open(key string) (*os.File, time.Time, error)

	// Delete removes a stored blob. Missing blobs are not an error.
	Delete(key string) error
}

type mediaService struct {
	store    BlobStore
	maxImage int
	maxVideo int
	log      zerolog.Logger
}

func NewService(store BlobStore, log zerolog.Logger) Service {
	return &mediaService{
		store:    store,
		maxImage: maxImageSize,
		maxVideo: maxVideoSize,
		log:      log.With().Str("component", "media").Logger(),
	}
}

func (s *mediaService) Upload(data []byte, declaredMIME string) (*Upload, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	mime := sniffMIME(data)
	f, ok := formats[mime]
	if !ok {
		return nil, ErrUnsupportedType
	}

	// A declared type is optional, but a wrong one is suspicious enough
	// to refuse rather than silently correct.
	if declaredMIME != "" && normalizeMIME(declaredMIME) != mime {
		return nil, ErrTypeMismatch
	}

	max := s.maxImage
	if f.kind == KindVideo {
		max = s.maxVideo
	}
	if len(data) > max {
		return nil, ErrTooLarge
	}

	key := uuid.NewString() + "." + f.ext
	if err := s.store.Put(key, data); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("key", key).
		Str("mime", mime).
		Int("size", len(data)).
		Msg("blob stored")

	return &Upload{
		Key:  key,
		URL:  "/media/" + key,
		MIME: mime,
		Size: len(data),
	}, nil
}

func (s *mediaService) Open(key string) (*os.File, time.Time, error) {
	return s.store.Open(key)
}

func (s *mediaService) Delete(key string) error {
	err := s.store.Delete(key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
