// Package validation provides validators for the pipeline's validation
// policy.
//
// ForPipeline validates struct payloads with go-playground/validator tags and
// map payloads (partial update documents) against per-key rules:
//
//	type NewUser struct {
//	    Name  string `json:"name" validate:"required,min=2"`
//	    Email string `json:"email" validate:"required,email"`
//	}
//
//	mw := middleware.Validation(middleware.ValidationConfig{
//	    Validator: validation.ForPipeline(validation.WithMapRules(map[string]string{
//	        "email": "email",
//	    })),
//	})
//
// For checks that tags cannot express, collect messages by hand:
//
//	v := validation.New()
//	v.RequiredUUID("owner_id", owner).OneOf("status", status, []string{"active", "archived"})
//	return v.Result(), nil
package validation
