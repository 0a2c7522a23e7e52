package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/storage"
)

// Kind names what an uploaded file is for.
type Kind string

const (
	KindLogo         Kind = "logo"
	KindBrief        Kind = "brief"
	KindPaymentProof Kind = "payment_proof"
)

const sniffBytes = 3072

// Limits caps upload sizes per file family.
type Limits struct {
	ImageMaxBytes    int64
	DocumentMaxBytes int64
}

// Upload is an untrusted file received from a client. Field is the form
// field reported in validation errors.
type Upload struct {
	Kind     Kind
	Field    string
	FileName string
	Size     int64
	Body     io.Reader
}

// Checked is an upload whose sniffed content type and size were accepted.
type Checked struct {
	Kind        Kind
	Field       string
	ContentType string
	Extension   string
	Size        int64
	body        io.Reader
}

// Stored describes a file persisted in the backend.
type Stored struct {
	Kind        Kind   `json:"kind"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Service validates and persists order attachments.
type Service interface {
	Check(up Upload) (*Checked, error)
	Store(ctx context.Context, reference uuid.UUID, file *Checked) (*Stored, error)
	Discard(ctx context.Context, keys ...string) error
	URL(ctx context.Context, key string) (string, error)
}

type service struct {
	backend storage.Backend
	limits  Limits
	logg    *logger.Logger
}

func NewService(backend storage.Backend, limits Limits, logg *logger.Logger) (Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("storage backend required")
	}
	if limits.ImageMaxBytes <= 0 || limits.DocumentMaxBytes <= 0 {
		return nil, fmt.Errorf("upload limits must be positive")
	}
	return &service{backend: backend, limits: limits, logg: logg}, nil
}

// Check sniffs the leading bytes of the body and ignores the declared content type.
// Validation failures are reported under the upload's field name.
func (s *service) Check(up Upload) (*Checked, error) {
	field := up.Field
	if field == "" {
		field = string(up.Kind)
	}
	fields := pkgerrors.FieldErrors{}
	if _, ok := allowedMimeGroupsByKind[up.Kind]; !ok {
		fields.Add(field, "unsupported upload kind")
		return nil, pkgerrors.Validation(fields)
	}
	if up.Body == nil || up.Size <= 0 {
		fields.Add(field, "file is empty")
		return nil, pkgerrors.Validation(fields)
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload").
			WithDetails(pkgerrors.FieldErrors{field: {"file could not be read"}})
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	group, ok := matchGroup(up.Kind, detected)
	if !ok {
		fields.Add(field, "must be one of "+allowedMimeDescription(up.Kind))
		return nil, pkgerrors.Validation(fields)
	}

	if ceiling := s.ceiling(up.Kind, group); up.Size > ceiling {
		fields.Add(field, fmt.Sprintf("must not exceed %d MB", ceiling>>20))
		return nil, pkgerrors.Validation(fields)
	}

	return &Checked{
		Kind:        up.Kind,
		Field:       field,
		ContentType: detected.String(),
		Extension:   detected.Extension(),
		Size:        up.Size,
		body:        io.LimitReader(io.MultiReader(bytes.NewReader(head), up.Body), up.Size),
	}, nil
}

// Payment proofs share the document ceiling whatever their format.
func (s *service) ceiling(kind Kind, group mimeGroup) int64 {
	if kind == KindPaymentProof || group == mimeGroupPDFs {
		return s.limits.DocumentMaxBytes
	}
	return s.limits.ImageMaxBytes
}

func (s *service) Store(ctx context.Context, reference uuid.UUID, file *Checked) (*Stored, error) {
	if file == nil || file.body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "upload was not checked")
	}
	if reference == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order reference required")
	}
	key := ObjectKey(reference, file.Kind, uuid.New(), file.Extension)
	err := s.backend.Put(ctx, storage.Object{
		Key:         key,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        file.body,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("store %s", file.Kind))
	}
	return &Stored{Kind: file.Kind, Key: key, ContentType: file.ContentType, Size: file.Size}, nil
}

// Discard removes objects written for a request that later failed.
func (s *service) Discard(ctx context.Context, keys ...string) error {
	var errs error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.backend.Delete(ctx, key); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if errs != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to discard orphaned uploads", errs)
	}
	return errs
}

func (s *service) URL(ctx context.Context, key string) (string, error) {
	url, err := s.backend.URL(ctx, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resolve file url")
	}
	return url, nil
}

// ObjectKey namespaces a file under its order.
func ObjectKey(reference uuid.UUID, kind Kind, id uuid.UUID, ext string) string {
	return fmt.Sprintf("orders/%s/%s/%s%s", reference, kind, id, ext)
}
