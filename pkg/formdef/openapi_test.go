package formdef_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

const registrationOpenAPI = `
openapi: 3.0.3
info:
  title: Farmer registry
  version: "1.0"
paths:
  /registrations:
    post:
      operationId: registerFarmer
      summary: Farmer Registration
      x-dfr:
        form_version: "5"
        status: published
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [full_name]
              properties:
                full_name:
                  type: string
                  title: Full Name
                  minLength: 2
                  maxLength: 80
                  x-dfr:
                    sequence: 1
                livestock_count:
                  type: integer
                  title: Livestock Count
                  minimum: 1
                  maximum: 10
                  x-dfr:
                    sequence: 3
                    conditional_logic:
                      action: show
                      relation: AND
                      rules:
                        - source_field: has_livestock
                          operator: is
                          value: "true"
                has_livestock:
                  type: boolean
                  title: Keeps livestock?
                  x-dfr:
                    sequence: 2
                crop_type:
                  type: string
                  enum: [maize, beans]
                national_id:
                  type: string
                  pattern: "^[0-9]{8}$"
                  x-dfr:
                    regex_error_message: National ID must be exactly 8 digits.
                location:
                  type: object
                  properties:
                    latitude: {type: number}
                    longitude: {type: number}
`

func TestFromOpenAPI(t *testing.T) {
	t.Parallel()

	def, err := formdef.FromOpenAPI(context.Background(), []byte(registrationOpenAPI), "registerFarmer")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}

	if def.Name != "Farmer Registration" || def.Version != "5" || def.Status != formdef.StatusPublished {
		t.Fatalf("header mismatch: %#v", def)
	}

	// x-dfr sequences first, then the remaining properties by name.
	wantOrder := []string{"crop_type", "location", "national_id", "full_name", "has_livestock", "livestock_count"}
	if diff := cmp.Diff(wantOrder, def.Names()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	name, _ := def.Field("full_name")
	if !name.IsRequired || name.Label != "Full Name" {
		t.Fatalf("full_name mismatch: %#v", name)
	}
	if name.ValidationRules.MinLength != 2 || name.ValidationRules.MaxLength != 80 {
		t.Fatalf("length rules mismatch: %#v", name.ValidationRules)
	}

	count, _ := def.Field("livestock_count")
	if count.Type != formdef.FieldTypeNumber || !count.HasConditionalLogic() {
		t.Fatalf("livestock_count mismatch: %#v", count)
	}
	if *count.ValidationRules.MaxValue != 10 {
		t.Fatalf("max_value mismatch: %v", *count.ValidationRules.MaxValue)
	}

	crop, _ := def.Field("crop_type")
	if crop.Type != formdef.FieldTypeSelection || len(crop.SelectionOptions) != 2 {
		t.Fatalf("crop_type mismatch: %#v", crop)
	}

	id, _ := def.Field("national_id")
	if id.ValidationRules.RegexErrorMessage != "National ID must be exactly 8 digits." {
		t.Fatalf("regex message mismatch: %#v", id.ValidationRules)
	}

	loc, _ := def.Field("location")
	if loc.Type != formdef.FieldTypeGPSPoint {
		t.Fatalf("location type mismatch: %q", loc.Type)
	}

	if diff := cmp.Diff([]string{"livestock_count"}, def.Dependents("has_livestock")); diff != "" {
		t.Fatalf("dependents mismatch (-want +got):\n%s", diff)
	}
}

func TestFromOpenAPI_UnknownOperation(t *testing.T) {
	t.Parallel()

	if _, err := formdef.FromOpenAPI(context.Background(), []byte(registrationOpenAPI), "missing"); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}
