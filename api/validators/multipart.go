package validators

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/validation"
)

// multipartMemory is the share of the form kept in memory; larger parts spill to temp files.
const multipartMemory = 8 << 20

// MultipartForm is a parsed multipart request. Close releases spilled temp files.
type MultipartForm struct {
	form *multipart.Form
}

// ParseMultipartForm reads at most maxBytes from the body.
func ParseMultipartForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*MultipartForm, error) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"request": {"content type must be multipart/form-data"}})
	}
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Validation(pkgerrors.FieldErrors{
				"request": {fmt.Sprintf("request must be at most %d MB", maxBytes>>20)},
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body").
			WithDetails(pkgerrors.FieldErrors{"request": {"malformed multipart body"}})
	}
	return &MultipartForm{form: r.MultipartForm}, nil
}

// File returns the first file sent under field, or nil.
func (f *MultipartForm) File(field string) *multipart.FileHeader {
	if f == nil || f.form == nil {
		return nil
	}
	files := f.form.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func (f *MultipartForm) Value(field string) string {
	if f == nil || f.form == nil {
		return ""
	}
	values := f.form.Value[field]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (f *MultipartForm) Close() {
	if f != nil && f.form != nil {
		_ = f.form.RemoveAll()
	}
}

// Bind decodes the text fields into dest's form tags and runs its validate tags.
// Blank values are dropped first. Conversion and rule failures are reported together.
func (f *MultipartForm) Bind(dest any) error {
	values := url.Values{}
	if f != nil && f.form != nil {
		for name, raw := range f.form.Value {
			for _, v := range raw {
				if v = strings.TrimSpace(v); v != "" {
					values.Add(name, v)
				}
			}
		}
	}

	fields := pkgerrors.FieldErrors{}
	if err := formDecoder.Decode(dest, values); err != nil {
		var decodeErrs form.DecodeErrors
		if !errors.As(err, &decodeErrs) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bind multipart form")
		}
		for field, fieldErr := range decodeErrs {
			fields.Add(field, conversionMessage(fieldErr))
		}
	}
	for field, msgs := range validation.Struct(dest) {
		if fields.Has(field) {
			continue
		}
		for _, msg := range msgs {
			fields.Add(field, msg)
		}
	}
	if fields.Empty() {
		return nil
	}
	return pkgerrors.Validation(fields)
}

var errNotANumber = errors.New("must be a number")

var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	decoder := form.NewDecoder()
	decoder.SetMode(form.ModeExplicit)
	decoder.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		d, err := decimal.NewFromString(vals[0])
		if err != nil {
			return nil, errNotANumber
		}
		return d, nil
	}, decimal.Decimal{})
	return decoder
}

func conversionMessage(err error) string {
	if errors.Is(err, errNotANumber) {
		return errNotANumber.Error()
	}
	return "is invalid"
}
