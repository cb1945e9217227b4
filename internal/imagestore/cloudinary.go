package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable — хостинг изображений недоступен или отклонил запрос
var ErrUnavailable = errors.New("image host unavailable")

// uploaderAPI — часть клиента cloudinary, которой пользуется хранилище
type uploaderAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type Settings struct {
	Folder      string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Store загружает изображения товаров в cloudinary. Все вызовы идут через circuit breaker.
type Store struct {
	log     *slog.Logger
	api     uploaderAPI
	folder  string
	breaker *gobreaker.CircuitBreaker[string]
}

// NewCloudinary создаёт хранилище по учётным данным аккаунта
func NewCloudinary(log *slog.Logger, cloudName, apiKey, apiSecret string, settings Settings) (*Store, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return newStore(log, &cld.Upload, settings), nil
}

func newStore(log *slog.Logger, api uploaderAPI, settings Settings) *Store {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	log = log.With(slog.String("component", "imagestore"))

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "cloudinary",
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Store{
		log:     log,
		api:     api,
		folder:  strings.Trim(settings.Folder, "/"),
		breaker: breaker,
	}
}

// Upload загружает изображение и возвращает его публичный https-адрес
func (s *Store) Upload(ctx context.Context, data []byte) (string, error) {
	secureURL, err := s.breaker.Execute(func() (string, error) {
		res, err := s.api.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{Folder: s.folder})
		if err != nil {
			return "", err
		}
		if res.Error.Message != "" {
			return "", errors.New(res.Error.Message)
		}
		if res.SecureURL == "" {
			return "", errors.New("empty secure url in upload result")
		}
		return res.SecureURL, nil
	})
	if err != nil {
		s.log.Error("image upload failed", sl.Err(err))
		return "", fmt.Errorf("%w: upload: %v", ErrUnavailable, err)
	}
	return secureURL, nil
}

// Delete удаляет изображение по адресу, который вернул Upload
func (s *Store) Delete(ctx context.Context, imageURL string) error {
	publicID, err := s.publicIDFromURL(imageURL)
	if err != nil {
		return err
	}

	_, err = s.breaker.Execute(func() (string, error) {
		res, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
		if err != nil {
			return "", err
		}
		if res.Error.Message != "" {
			return "", errors.New(res.Error.Message)
		}
		return res.Result, nil
	})
	if err != nil {
		s.log.Error("image delete failed", slog.String("public_id", publicID), sl.Err(err))
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, publicID, err)
	}
	return nil
}

// publicIDFromURL: папка хранилища + имя файла без расширения
func (s *Store) publicIDFromURL(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Path == "" {
		return "", fmt.Errorf("invalid image url %q", imageURL)
	}
	name := path.Base(u.Path)
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("invalid image url %q", imageURL)
	}
	if s.folder == "" {
		return name, nil
	}
	return s.folder + "/" + name, nil
}
