package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/warta-go-api/internal/dto"
)

// decodeBulkPayload enforces the schema on the raw body before it is bound
// to the typed request, so malformed rows are rejected wholesale with a
// schema-level explanation.
func decodeBulkPayload(schema *jsonschema.Schema, raw []byte) (dto.BulkCreateUsersRequest, error) {
	var generic interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return dto.BulkCreateUsersRequest{}, fmt.Errorf("%w: %v", ErrBulkPayload, err)
	}

	if err := schema.Validate(generic); err != nil {
		return dto.BulkCreateUsersRequest{}, fmt.Errorf("%w: %v", ErrBulkPayload, err)
	}

	var payload dto.BulkCreateUsersRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		return dto.BulkCreateUsersRequest{}, fmt.Errorf("%w: %v", ErrBulkPayload, err)
	}

	return payload, nil
}
