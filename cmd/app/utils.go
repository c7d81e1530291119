package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/showcase/internal/common"
	"github.com/sushihentaime/showcase/internal/contentservice"
)

type envelope map[string]any

// multipartMemory is the part of a multipart body kept in memory, the rest spills to temporary files.
const multipartMemory = 8 << 20

var errUnsupportedMediaType = errors.New("unsupported media type")

func (app *application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func (app *application) parseJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("request body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("request body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("request body contains an invalid value for the %q field", unmarshalTypeError.Field)
			}
			return fmt.Errorf("request body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("request body contains unknown field %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("request body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}
	err = decoder.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("request body must only contain a single JSON value")
	}
	return nil
}

func (app *application) readIDParam(r *http.Request, key string) (int, error) {
	params := httprouter.ParamsFromContext(r.Context())

	id, err := strconv.Atoi(params.ByName(key))
	if err != nil {
		return 0, errors.New("invalid ID parameter")
	}

	return id, nil
}

// readEntityInput collects the fields and files of res from a multipart, urlencoded or JSON body. Names that res does
// not declare are ignored. The returned cleanup closes uploaded files and removes multipart temp files.
func (app *application) readEntityInput(w http.ResponseWriter, r *http.Request, res contentservice.Resource) (contentservice.Input, func(), error) {
	in := contentservice.Input{
		Fields: make(map[string]string),
		Files:  make(map[string]contentservice.Upload),
	}
	cleanup := func() {}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		var err error
		mediaType, _, err = mime.ParseMediaType(ct)
		if err != nil {
			return in, cleanup, errUnsupportedMediaType
		}
	}

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, app.config.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return in, cleanup, formError(err, "invalid multipart form")
		}

		var opened []multipart.File
		cleanup = func() {
			for _, f := range opened {
				f.Close()
			}
			r.MultipartForm.RemoveAll()
		}

		for _, f := range res.Fields {
			if values, ok := r.MultipartForm.Value[f.Name]; ok && len(values) > 0 {
				in.Fields[f.Name] = values[0]
			}
		}

		v := common.NewValidator()
		for _, slot := range res.Slots {
			headers := r.MultipartForm.File[slot]
			if len(headers) == 0 {
				continue
			}

			f, err := headers[0].Open()
			if err != nil {
				return in, cleanup, err
			}
			opened = append(opened, f)

			ok, err := isImage(f)
			if err != nil {
				return in, cleanup, err
			}
			v.Check(ok, slot, "must be an image file")

			in.Files[slot] = contentservice.Upload{Filename: headers[0].Filename, Content: f}
		}
		if !v.Valid() {
			return in, cleanup, v.ValidationError()
		}

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, app.config.MaxUploadBytes)
		if err := r.ParseForm(); err != nil {
			return in, cleanup, formError(err, "invalid form body")
		}

		for _, f := range res.Fields {
			if values, ok := r.PostForm[f.Name]; ok && len(values) > 0 {
				in.Fields[f.Name] = values[0]
			}
		}

	case "application/json":
		var body map[string]any
		if err := app.parseJSON(w, r, &body); err != nil {
			return in, cleanup, err
		}

		for _, f := range res.Fields {
			value, ok := body[f.Name]
			if !ok {
				continue
			}

			switch value := value.(type) {
			case nil:
				in.Fields[f.Name] = ""
			case string:
				in.Fields[f.Name] = value
			case float64:
				in.Fields[f.Name] = strconv.FormatFloat(value, 'f', -1, 64)
			default:
				return in, cleanup, fmt.Errorf("request body contains an invalid value for the %q field", f.Name)
			}
		}

	case "":
		// A bodiless update keeps every stored value.
		if r.ContentLength > 0 {
			return in, cleanup, errUnsupportedMediaType
		}

	default:
		return in, cleanup, errUnsupportedMediaType
	}

	return in, cleanup, nil
}

// isImage sniffs the first bytes of f and rewinds it.
func isImage(f multipart.File) (bool, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}

	return strings.HasPrefix(http.DetectContentType(head[:n]), "image/"), nil
}

// formError keeps size errors recognisable and turns anything else into a client error.
func formError(err error, message string) error {
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		return maxBytesError
	}
	return errors.New(message)
}
