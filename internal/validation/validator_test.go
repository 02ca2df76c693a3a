package validation

import (
	"testing"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/model"
)

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(model.Credentials{Email: "ana@example.com", Password: "x"}); err != nil {
		t.Fatalf("ValidateStruct() error = %v", err)
	}

	err := ValidateStruct(model.Credentials{Email: "not-an-email"})
	if err == nil {
		t.Fatal("ValidateStruct() expected error")
	}
	if err.Code != errordefs.LUXY_VALIDATION {
		t.Errorf("Code = %v, want %v", err.Code, errordefs.LUXY_VALIDATION)
	}
	fields, ok := err.Details.([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("Details = %#v, want two field errors", err.Details)
	}
}

func TestValidateUploadMetaCategory(t *testing.T) {
	meta := model.UploadMeta{Title: "Golden hour", Category: "food"}
	err := ValidateStruct(meta)
	if err == nil {
		t.Fatal("expected unknown category to be rejected")
	}

	meta.Category = "nature"
	if err := ValidateStruct(meta); err != nil {
		t.Errorf("ValidateStruct() error = %v", err)
	}
}
