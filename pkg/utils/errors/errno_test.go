package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service, category, sequence int
		want                        int
	}{
		{ServiceCommon, CategoryInternal, 1, 7001},
		{ServiceStudy, CategoryRequest, 1, 2101001},
		{ServiceStudy, CategoryResource, 1, 2104001},
		{ServiceStudy, CategoryNetwork, 1, 2110001},
	}

	for _, tt := range tests {
		if got := MakeCode(tt.service, tt.category, tt.sequence); got != tt.want {
			t.Errorf("MakeCode(%d, %d, %d) = %d, want %d", tt.service, tt.category, tt.sequence, got, tt.want)
		}
	}
}

func TestParseCode(t *testing.T) {
	service, category, sequence := ParseCode(2104001)
	if service != ServiceStudy || category != CategoryResource || sequence != 1 {
		t.Errorf("ParseCode(2104001) = (%d, %d, %d), want (21, 4, 1)", service, category, sequence)
	}
}

func TestErrno_WithCause(t *testing.T) {
	cause := fmt.Errorf("open /data/index/doc1.idx: no such file or directory")
	err := ErrStudyDocumentNotFound.WithCause(cause)

	if !errors.Is(err, ErrStudyDocumentNotFound) {
		t.Error("wrapped errno should match its base via errors.Is")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped errno should unwrap to its cause")
	}
	// 基础错误对象不能被修改
	if ErrStudyDocumentNotFound.cause != nil {
		t.Error("WithCause must not mutate the registered errno")
	}
}

func TestErrno_HTTPStatus(t *testing.T) {
	if got := ErrStudyDocumentNotFound.HTTPStatus(); got != http.StatusNotFound {
		t.Errorf("HTTPStatus() = %d, want 404", got)
	}
	if got := ErrStudyUpstream.HTTPStatus(); got != http.StatusBadGateway {
		t.Errorf("HTTPStatus() = %d, want 502", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	if e := FromError(ErrStudyInvalidRequest); e != ErrStudyInvalidRequest {
		t.Error("FromError should return an Errno unchanged")
	}

	e := FromError(fmt.Errorf("boom"))
	if e.Code != ErrInternal.Code {
		t.Errorf("FromError(plain error) code = %d, want ErrInternal", e.Code)
	}
	// 内部错误信息不能泄露底层细节
	if e.MessageEN != ErrInternal.MessageEN {
		t.Error("FromError must keep the opaque internal message")
	}
}

func TestIsCode(t *testing.T) {
	if !IsCode(ErrStudyQuizFormat, ErrStudyQuizFormat.Code) {
		t.Error("IsCode should match the errno's own code")
	}
	if IsCode(fmt.Errorf("boom"), ErrInternal.Code) {
		t.Error("IsCode should be false for non-Errno errors")
	}
}
