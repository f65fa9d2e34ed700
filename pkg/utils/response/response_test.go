package response

import (
	"net/http"
	"testing"

	"github.com/kart-io/studyrag/pkg/utils/errors"
)

func TestSuccess(t *testing.T) {
	r := Success(map[string]string{"answer": "42"})
	if !r.IsSuccess() {
		t.Error("Success response should report success")
	}
	if r.HTTPStatus() != http.StatusOK {
		t.Errorf("HTTPStatus() = %d, want 200", r.HTTPStatus())
	}
}

func TestErr(t *testing.T) {
	r := Err(errors.ErrStudyDocumentNotFound)
	if r.IsSuccess() {
		t.Error("error response should not report success")
	}
	if r.Code != errors.ErrStudyDocumentNotFound.Code {
		t.Errorf("Code = %d, want %d", r.Code, errors.ErrStudyDocumentNotFound.Code)
	}
	if r.HTTPStatus() != http.StatusNotFound {
		t.Errorf("HTTPStatus() = %d, want 404", r.HTTPStatus())
	}
}

func TestErrNil(t *testing.T) {
	if r := Err(nil); !r.IsSuccess() {
		t.Error("Err(nil) should be a success response")
	}
}

func TestErrorWithCodeUnknown(t *testing.T) {
	r := ErrorWithCode(9999999, "mystery")
	if r.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("unknown code should map to 500, got %d", r.HTTPStatus())
	}
}
