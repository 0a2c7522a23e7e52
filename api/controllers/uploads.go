package controllers

import (
	"mime/multipart"

	"go.uber.org/multierr"

	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/media"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

// multipartSlack covers text fields and part headers on top of the file ceilings.
const multipartSlack = 1 << 20

// openedFiles tracks the parts opened for one request.
type openedFiles []multipart.File

func (o *openedFiles) open(form *validators.MultipartForm, field string, kind media.Kind) (*media.Upload, error) {
	header := form.File(field)
	if header == nil {
		return nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload").
			WithDetails(pkgerrors.FieldErrors{field: {"could not be read"}})
	}
	*o = append(*o, file)
	return &media.Upload{
		Kind:     kind,
		Field:    field,
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	}, nil
}

func (o *openedFiles) Close() error {
	var err error
	for _, f := range *o {
		err = multierr.Append(err, f.Close())
	}
	return err
}
