package schema

import (
	"testing"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
)

func TestValidateContent(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	valid := `{"id":12,"title":"Noiva","description":null,"category":"wedding","file_path":"/uploads/photos/12.jpg",
		"file_type":"photo","upload_date":"2024-05-01T12:00:00Z","likes_count":3,"average_rating":4.5,"ratings_count":2}`
	if err := v.Validate(Content, []byte(valid)); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	tests := map[string]string{
		"missing id":       `{"title":"x","category":"wedding","file_path":"p","file_type":"photo","upload_date":"d"}`,
		"bad kind":         `{"id":"1","title":"x","category":"wedding","file_path":"p","file_type":"audio","upload_date":"d"}`,
		"rating too high":  `{"id":"1","title":"x","category":"wedding","file_path":"p","file_type":"photo","upload_date":"d","average_rating":7}`,
		"negative likes":   `{"id":"1","title":"x","category":"wedding","file_path":"p","file_type":"photo","upload_date":"d","likes_count":-1}`,
		"not json":         `{"id":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			err := v.Validate(Content, []byte(body))
			if !errordefs.Is(err, errordefs.LUXY_INTERNAL) {
				t.Errorf("Validate() error = %v, want LUXY_INTERNAL", err)
			}
		})
	}
}

func TestValidateTokenAndLists(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Validate(Token, []byte(`{"access_token":"abc","token_type":"bearer"}`)); err != nil {
		t.Errorf("admin token response rejected: %v", err)
	}
	if err := v.Validate(Token, []byte(`{"access_token":"abc","user":{"id":1,"email":"a@b.c","name":"A"}}`)); err != nil {
		t.Errorf("user token response rejected: %v", err)
	}
	if err := v.Validate(Token, []byte(`{"token_type":"bearer"}`)); err == nil {
		t.Errorf("token response without access_token accepted")
	}
	if err := v.Validate(CategoryList, []byte(`[{"id":"all","name":"Todas","count":3}]`)); err != nil {
		t.Errorf("category list rejected: %v", err)
	}
	if err := v.Validate(ContentList, []byte(`[]`)); err != nil {
		t.Errorf("empty content list rejected: %v", err)
	}
	if err := v.Validate("unknown", []byte(`{}`)); err == nil {
		t.Errorf("unknown schema accepted")
	}
}
