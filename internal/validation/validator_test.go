// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Name   string `validate:"required,min=1,max=10"`
	Limit  int    `validate:"min=1,max=1000"`
	Format string `validate:"omitempty,oneof=json csv"`
	Date   string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		req := sampleRequest{Name: "sprint", Limit: 100, Format: "json", Date: "2026-08-31T12:00:00Z"}
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("ValidateStruct() = %v, want nil", err)
		}
	})

	t.Run("missing required field fails", func(t *testing.T) {
		req := sampleRequest{Limit: 10}
		err := ValidateStruct(&req)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if len(err.Errors()) != 1 {
			t.Fatalf("got %d errors, want 1", len(err.Errors()))
		}
		if err.Errors()[0].Field() != "Name" || err.Errors()[0].Tag() != "required" {
			t.Errorf("unexpected error: %+v", err.Errors()[0])
		}
	})

	t.Run("multiple failures are aggregated", func(t *testing.T) {
		req := sampleRequest{Name: "this name is far too long", Limit: 5000, Format: "xml"}
		err := ValidateStruct(&req)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if len(err.Errors()) != 3 {
			t.Errorf("got %d errors, want 3", len(err.Errors()))
		}
		if !strings.Contains(err.Error(), ";") {
			t.Errorf("combined message should join failures: %q", err.Error())
		}
	})

	t.Run("bad datetime fails", func(t *testing.T) {
		req := sampleRequest{Name: "ok", Limit: 1, Date: "31/08/2026"}
		if err := ValidateStruct(&req); err == nil {
			t.Error("expected datetime validation error")
		}
	})
}

func TestToAPIError(t *testing.T) {
	t.Run("single error carries field details", func(t *testing.T) {
		req := sampleRequest{Name: "", Limit: 10}
		apiErr := ValidateStruct(&req).ToAPIError()

		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Details["field"] != "Name" {
			t.Errorf("Details = %+v", apiErr.Details)
		}
		if !strings.Contains(apiErr.Message, "required") {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})

	t.Run("multiple errors list all fields", func(t *testing.T) {
		req := sampleRequest{Name: "", Limit: 5000}
		apiErr := ValidateStruct(&req).ToAPIError()

		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok {
			t.Fatalf("Details[fields] = %T", apiErr.Details["fields"])
		}
		if len(fields) != 2 {
			t.Errorf("got %d fields, want 2", len(fields))
		}
	})
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}
