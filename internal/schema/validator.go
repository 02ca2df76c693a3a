// internal/schema/validator.go
// Package schema provides JSON schema validation of gateway responses.
// Every record that crosses the gateway boundary is checked against its
// schema before it is mapped onto the model types, so a malformed record is
// rejected as a whole instead of leaking zero values into the store.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
)

// Names of the response schemas.
const (
	Content        = "content"
	ContentList    = "content.list"
	CategoryList   = "category.list"
	Token          = "auth.token"
	User           = "auth.user"
	Collection     = "collection"
	CollectionList = "collection.list"
	Stats          = "admin.stats"
	LikeAck        = "content.like"
	RateAck        = "content.rate"
)

// Gateway ids are integers on the reference backend and strings elsewhere.
const idSchema = `{"type":["integer","string"]}`

var contentSchema = `{
	"type":"object",
	"required":["id","title","category","file_path","file_type","upload_date"],
	"properties":{
		"id":` + idSchema + `,
		"title":{"type":"string"},
		"description":{"type":["string","null"]},
		"category":{"type":"string","minLength":1},
		"file_path":{"type":"string"},
		"thumbnail_path":{"type":["string","null"]},
		"file_type":{"enum":["photo","video"]},
		"file_size":{"type":["integer","null"],"minimum":0},
		"duration":{"type":["string","null"]},
		"width":{"type":["integer","null"]},
		"height":{"type":["integer","null"]},
		"upload_date":{"type":"string","minLength":1},
		"is_published":{"type":"boolean"},
		"likes_count":{"type":"integer","minimum":0},
		"average_rating":{"type":"number","minimum":0,"maximum":5},
		"ratings_count":{"type":"integer","minimum":0}
	}
}`

var userSchema = `{
	"type":"object",
	"required":["id","email","name"],
	"properties":{
		"id":` + idSchema + `,
		"email":{"type":"string"},
		"name":{"type":"string"},
		"role":{"type":"string"},
		"is_active":{"type":"boolean"},
		"created_at":{"type":"string"}
	}
}`

var collectionSchema = `{
	"type":"object",
	"required":["id","name"],
	"properties":{
		"id":` + idSchema + `,
		"name":{"type":"string"},
		"description":{"type":["string","null"]},
		"created_at":{"type":"string"},
		"items":{"type":"array","items":{"type":"object","required":["id"],"properties":{"id":` + idSchema + `}}}
	}
}`

var sources = map[string]string{
	Content:     contentSchema,
	ContentList: `{"type":"array","items":` + contentSchema + `}`,
	CategoryList: `{"type":"array","items":{"type":"object","required":["id","count"],"properties":{
		"id":{"type":"string"},"name":{"type":"string"},"count":{"type":"integer","minimum":0}}}}`,
	Token: `{"type":"object","required":["access_token"],"properties":{
		"access_token":{"type":"string","minLength":1},"token_type":{"type":"string"},"user":{"oneOf":[{"type":"null"},` + userSchema + `]}}}`,
	User:           userSchema,
	Collection:     collectionSchema,
	CollectionList: `{"type":"array","items":` + collectionSchema + `}`,
	Stats: `{"type":"object","required":["total_content","total_photos","total_videos","total_likes","total_ratings","average_rating"],"properties":{
		"total_content":{"type":"integer","minimum":0},"total_photos":{"type":"integer","minimum":0},"total_videos":{"type":"integer","minimum":0},
		"total_likes":{"type":"integer","minimum":0},"total_ratings":{"type":"integer","minimum":0},"average_rating":{"type":"number","minimum":0,"maximum":5}}}`,
	LikeAck: `{"type":"object","properties":{"message":{"type":"string"},"likes_count":{"type":"integer","minimum":0}}}`,
	RateAck: `{"type":"object","properties":{"message":{"type":"string"},
		"average_rating":{"type":"number","minimum":0,"maximum":5},"ratings_count":{"type":"integer","minimum":0}}}`,
}

// Validator validates gateway responses against compiled JSON schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema // Map of schema names to compiled schemas
}

// NewValidator compiles every response schema.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(sources))}
	for name, src := range sources {
		if err := v.loadSchema(name, src); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// loadSchema parses and compiles a single schema.
func (v *Validator) loadSchema(name, schemaJSON string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", name, err)
	}
	v.schemas[name] = compiled
	return nil
}

// Validate checks body against the named schema. A body that does not
// conform is reported as LUXY_INTERNAL with the violations as details.
func (v *Validator) Validate(name string, body []byte) error {
	compiled, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema not found: %s", name)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "malformed %s response: %v", name, err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return errordefs.NewWithDetails(errordefs.LUXY_INTERNAL,
			fmt.Sprintf("gateway %s response rejected", name), strings.Join(errs, "; "))
	}
	return nil
}
