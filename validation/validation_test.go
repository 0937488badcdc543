package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/mizzle/errors"
	"github.com/kbukum/mizzle/middleware"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "John")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("name", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", uuid.New().String(), false},
		{"empty", "", true},
		{"malformed", "not-a-uuid", true},
		{"nil uuid", uuid.Nil.String(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New().RequiredUUID("id", tt.value)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", v.HasErrors(), tt.wantErr, v.Errors())
			}
		})
	}
}

func TestValidatorOptionalUUID(t *testing.T) {
	if New().OptionalUUID("id", "").HasErrors() {
		t.Error("expected empty optional UUID to pass")
	}
	if New().OptionalUUID("id", uuid.New().String()).HasErrors() {
		t.Error("expected valid optional UUID to pass")
	}
	if !New().OptionalUUID("id", "bad").HasErrors() {
		t.Error("expected malformed optional UUID to fail")
	}
}

func TestValidatorLength(t *testing.T) {
	if New().MaxLength("name", "abc", 3).HasErrors() {
		t.Error("expected max length boundary to pass")
	}
	if !New().MaxLength("name", "abcd", 3).HasErrors() {
		t.Error("expected too long value to fail")
	}
	if New().MinLength("name", "ab", 2).HasErrors() {
		t.Error("expected min length boundary to pass")
	}
	if !New().MinLength("name", "a", 2).HasErrors() {
		t.Error("expected too short value to fail")
	}
}

func TestValidatorOneOf(t *testing.T) {
	allowed := []string{"active", "archived"}
	if New().OneOf("status", "active", allowed).HasErrors() {
		t.Error("expected allowed value to pass")
	}
	if New().OneOf("status", "", allowed).HasErrors() {
		t.Error("expected empty value to pass")
	}
	v := New().OneOf("status", "deleted", allowed)
	if !v.HasErrors() {
		t.Fatal("expected disallowed value to fail")
	}
	if got := v.Messages()[0]; got != "status: must be one of: active, archived" {
		t.Errorf("message = %q", got)
	}
}

func TestValidatorCustom(t *testing.T) {
	if New().Custom(true, "age", "must be adult").HasErrors() {
		t.Error("expected true condition to pass")
	}
	if !New().Custom(false, "age", "must be adult").HasErrors() {
		t.Error("expected false condition to fail")
	}
}

func TestValidatorErr(t *testing.T) {
	if err := New().Required("name", "x").Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := New().Required("name", "").MinLength("code", "a", 3).Err()
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	want := []string{"name: is required", "code: must be at least 3 characters"}
	if len(verr.Errors) != len(want) {
		t.Fatalf("errors = %v, want %v", verr.Errors, want)
	}
	for i := range want {
		if verr.Errors[i] != want[i] {
			t.Errorf("errors[%d] = %q, want %q", i, verr.Errors[i], want[i])
		}
	}
}

func TestValidatorResult(t *testing.T) {
	res := New().Required("name", "ok").Result()
	if !res.Valid || len(res.Errors) != 0 {
		t.Errorf("expected valid result, got %+v", res)
	}

	res = New().Required("name", "").Result()
	if res.Valid || len(res.Errors) != 1 {
		t.Errorf("expected one error, got %+v", res)
	}
}

type signup struct {
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Age       int    `json:"age" validate:"gte=0,lte=150"`
	InviteKey string `validate:"omitempty,uuid"`
}

func TestStructValidateValid(t *testing.T) {
	s := signup{Name: "Ada", Email: "ada@example.com", Age: 36}
	if err := Validate(s); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	s := signup{Name: "A", Email: "nope", Age: 200, InviteKey: "bad"}
	err := Validate(s)

	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	joined := strings.Join(verr.Errors, "; ")
	for _, want := range []string{
		"name: must be at least 2 characters",
		"email: must be a valid email address",
		"age: must be less than or equal to 150",
		"invite_key: must be a valid UUID",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in %q", want, joined)
		}
	}
}

func TestForPipelineStruct(t *testing.T) {
	validate := ForPipeline()
	ctx := context.Background()

	res, err := validate(ctx, signup{Name: "Ada", Email: "ada@example.com"}, middleware.OpCreate)
	if err != nil || !res.Valid {
		t.Fatalf("expected valid, got %+v, %v", res, err)
	}

	res, err = validate(ctx, &signup{Name: "Ada"}, middleware.OpCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || len(res.Errors) != 1 || res.Errors[0] != "email: is required" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestForPipelinePassesOtherData(t *testing.T) {
	validate := ForPipeline()
	var nilPtr *signup
	for _, data := range []any{"text", 42, []int{1}, nilPtr, map[string]any{"x": 1}} {
		res, err := validate(context.Background(), data, middleware.OpUpdate)
		if err != nil || !res.Valid {
			t.Errorf("data %#v: expected pass, got %+v, %v", data, res, err)
		}
	}
}

func TestForPipelineMapRules(t *testing.T) {
	validate := ForPipeline(WithMapRules(map[string]string{
		"email": "required,email",
		"name":  "required,min=2",
	}))
	ctx := context.Background()

	tests := []struct {
		name  string
		data  map[string]any
		op    middleware.Operation
		valid bool
		errs  []string
	}{
		{
			name:  "partial update checks present keys only",
			data:  map[string]any{"email": "ada@example.com"},
			op:    middleware.OpUpdate,
			valid: true,
		},
		{
			name: "partial update with bad value",
			data: map[string]any{"email": "nope"},
			op:   middleware.OpUpdateByID,
			errs: []string{"email: must be a valid email address"},
		},
		{
			name: "create checks every rule in key order",
			data: map[string]any{"name": "A"},
			op:   middleware.OpCreate,
			errs: []string{"email: is required", "name: must be at least 2 characters"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := validate(ctx, tt.data, tt.op)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (%v)", res.Valid, tt.valid, res.Errors)
			}
			if len(res.Errors) != len(tt.errs) {
				t.Fatalf("errors = %v, want %v", res.Errors, tt.errs)
			}
			for i := range tt.errs {
				if res.Errors[i] != tt.errs[i] {
					t.Errorf("errors[%d] = %q, want %q", i, res.Errors[i], tt.errs[i])
				}
			}
		})
	}
}

func TestForPipelineWithMiddleware(t *testing.T) {
	mw := middleware.Validation(middleware.ValidationConfig{Validator: ForPipeline()})
	mc := &middleware.Context{Collection: "users", Operation: middleware.OpCreate, Data: signup{Name: "Ada"}}

	called := false
	_, err := mw(context.Background(), mc, func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if called {
		t.Error("terminal should not run for invalid data")
	}
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"InviteKey": "invite_key",
		"userID":    "user_i_d",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
