package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/trunov/converthub/internal/entities"
)

type APIError struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(APIError{
		Error: message,
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, entities.ErrNotReady):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, entities.ErrUnsupportedConversion):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeMultipartError(w http.ResponseWriter, err error) {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "too large"):
		writeJSONError(w, "uploaded file exceeds maximum allowed size", http.StatusRequestEntityTooLarge)

	case strings.Contains(msg, "content-type isn't multipart/form-data"):
		writeJSONError(w, "invalid content type, expected multipart/form-data", http.StatusBadRequest)

	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func validationErrorsToMap(err error) map[string]string {
	errs := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs[field] = "is required"
			case "max":
				errs[field] = "exceeds maximum length"
			default:
				errs[field] = "invalid value"
			}
		}
	} else {
		errs["error"] = err.Error()
	}
	return errs
}

// declaredMIMEs lists the detected MIME types accepted for a declared
// source format. Formats absent from the map skip content sniffing; the
// dispatcher's strategies reject malformed input anyway.
var declaredMIMEs = map[string][]string{
	"JPG":  {"image/jpeg"},
	"PNG":  {"image/png"},
	"GIF":  {"image/gif"},
	"BMP":  {"image/bmp", "image/x-ms-bmp"},
	"TIFF": {"image/tiff"},
	"WEBP": {"image/webp"},
	"PDF":  {"application/pdf"},
	"MP3":  {"audio/mpeg"},
	"WAV":  {"audio/wav", "audio/x-wav"},
	"FLAC": {"audio/flac"},
	"OGG":  {"audio/ogg", "application/ogg"},
	"MP4":  {"video/mp4"},
	"AVI":  {"video/x-msvideo"},
	"MOV":  {"video/quicktime"},
	"MKV":  {"video/x-matroska"},
	"WEBM": {"video/webm"},
	// Zip containers: sniffing cannot always tell OOXML flavors apart.
	"DOCX": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	"XLSX": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	"PPTX": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "application/zip"},
}

// validateDeclaredFormat cross-checks the declared source format against the
// sniffed content type. Text-like formats are exempt: a bare CSV or JSON
// file routinely sniffs as text/plain.
func validateDeclaredFormat(src string, mime *mimetype.MIME) error {
	allowed, ok := declaredMIMEs[src]
	if !ok {
		return nil
	}
	detected := mime.String()
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	for _, a := range allowed {
		if detected == a {
			return nil
		}
	}
	return fmt.Errorf("file content (%s) does not match declared format %s", detected, src)
}
