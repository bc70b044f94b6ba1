package handler

import (
	"strings"

	"github.com/google/uuid"

	"laurel/internal/badges/service"
	"laurel/pkg/email"
	"laurel/pkg/platform/httputil"
)

// BadgeRequest is the HTTP request body for creating and editing badges.
type BadgeRequest struct {
	Title                   string      `json:"title"`
	Slug                    string      `json:"slug"`
	Description             string      `json:"description"`
	Unique                  bool        `json:"unique"`
	NominationsAccepted     bool        `json:"nominations_accepted"`
	NominationsAutoApproved bool        `json:"nominations_autoapproved"`
	Prerequisites           []uuid.UUID `json:"prerequisites"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *BadgeRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return httputil.New(httputil.CodeValidation, "title is required")
	}
	if len(r.Title) > 255 {
		return httputil.New(httputil.CodeValidation, "title must be at most 255 characters")
	}
	if len(r.Slug) > 255 {
		return httputil.New(httputil.CodeValidation, "slug must be at most 255 characters")
	}
	return nil
}

// Params converts the request into service badge parameters.
func (r *BadgeRequest) Params() service.BadgeParams {
	return service.BadgeParams{
		Title:                   r.Title,
		Slug:                    r.Slug,
		Description:             r.Description,
		Unique:                  r.Unique,
		NominationsAccepted:     r.NominationsAccepted,
		NominationsAutoApproved: r.NominationsAutoApproved,
		Prerequisites:           r.Prerequisites,
	}
}

// AwardRequest is the HTTP request body for POST /badges/{slug}/awards.
// The recipient is named either by user ID or by email address; an email
// with no matching account turns into a deferred award.
type AwardRequest struct {
	UserID      *uuid.UUID `json:"user_id"`
	Email       string     `json:"email"`
	Description string     `json:"description"`
}

func (r *AwardRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if (r.UserID == nil) == (r.Email == "") {
		return httputil.New(httputil.CodeValidation, "exactly one of user_id and email is required")
	}
	if r.Email != "" && !email.Valid(r.Email) {
		return httputil.New(httputil.CodeValidation, "email is not a valid address")
	}
	return nil
}

// ProgressRequest is the HTTP request body for POST /badges/{slug}/progress.
// Exactly one movement is applied per call: a percent update (optionally as
// current over total) or a counter increment/decrement.
type ProgressRequest struct {
	Percent   *float64       `json:"percent"`
	Total     *float64       `json:"total"`
	Increment *float64       `json:"increment"`
	Decrement *float64       `json:"decrement"`
	Notes     map[string]any `json:"notes"`
}

func (r *ProgressRequest) Validate() error {
	set := 0
	for _, f := range []*float64{r.Percent, r.Increment, r.Decrement} {
		if f != nil {
			set++
		}
	}
	if set != 1 {
		return httputil.New(httputil.CodeValidation, "exactly one of percent, increment and decrement is required")
	}
	if r.Total != nil && r.Percent == nil {
		return httputil.New(httputil.CodeValidation, "total only applies to percent updates")
	}
	if r.Percent != nil && *r.Percent < 0 {
		return httputil.New(httputil.CodeValidation, "percent cannot be negative")
	}
	return nil
}

// NominateRequest is the HTTP request body for POST /badges/{slug}/nominations.
type NominateRequest struct {
	NomineeID uuid.UUID `json:"nominee_id"`
}

func (r *NominateRequest) Validate() error {
	if r.NomineeID == uuid.Nil {
		return httputil.New(httputil.CodeValidation, "nominee_id is required")
	}
	return nil
}

// RejectRequest is the HTTP request body for POST /nominations/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ClaimGroupRequest is the HTTP request body for POST /badges/{slug}/claim-groups.
type ClaimGroupRequest struct {
	Count    int  `json:"count"`
	Reusable bool `json:"reusable"`
}

func (r *ClaimGroupRequest) Validate() error {
	if r.Count < 1 || r.Count > 1000 {
		return httputil.New(httputil.CodeValidation, "count must be between 1 and 1000")
	}
	return nil
}

// HiddenRequest is the HTTP request body for PUT /awards/{id}/hidden.
type HiddenRequest struct {
	Hidden bool `json:"hidden"`
}

// GrantRequest is the HTTP request body for POST /deferred/{id}/grant.
type GrantRequest struct {
	Email string `json:"email"`
}

func (r *GrantRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if !email.Valid(r.Email) {
		return httputil.New(httputil.CodeValidation, "email is not a valid address")
	}
	return nil
}
