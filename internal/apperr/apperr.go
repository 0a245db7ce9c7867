// Package apperr defines the business error taxonomy shared by services and
// the HTTP layer.  Services return *Error values; handlers translate the
// Kind into a status code and the Code into the response body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups codes by how the caller should react.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindInvalidInput
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "internal"
}

// Code is the stable identifier returned to clients.
type Code string

const (
	CodeMemberNotFound          Code = "MEMBER_NOT_FOUND"
	CodeStoreNotFound           Code = "STORE_NOT_FOUND"
	CodeReservationNotFound     Code = "RESERVATION_NOT_FOUND"
	CodeReviewNotFound          Code = "REVIEW_NOT_FOUND"
	CodeInvalidReservationTime  Code = "INVALID_RESERVATION_TIME"
	CodeReservationTooClose     Code = "RESERVATION_TOO_CLOSE"
	CodeReservationTooFar       Code = "RESERVATION_TOO_FAR"
	CodeOutsideBusinessHours    Code = "OUTSIDE_BUSINESS_HOURS"
	CodeDuplicateReservation    Code = "DUPLICATE_RESERVATION"
	CodeStoreFullyBooked        Code = "STORE_FULLY_BOOKED"
	CodeInvalidStoreOwner       Code = "INVALID_STORE_OWNER"
	CodeInvalidStatusUpdate     Code = "INVALID_STATUS_UPDATE"
	CodeInvalidCheckinStatus    Code = "INVALID_CHECKIN_STATUS"
	CodeEarlyCheckin            Code = "EARLY_CHECKIN"
	CodeLateCheckin             Code = "LATE_CHECKIN"
	CodeInvalidVerificationCode Code = "INVALID_VERIFICATION_CODE"
	CodeNoShowTooEarly          Code = "NO_SHOW_TOO_EARLY"
	CodeNotReservationOwner     Code = "NOT_RESERVATION_OWNER"
	CodeInvalidReviewStatus     Code = "INVALID_REVIEW_STATUS"
	CodeReviewAlreadyExists     Code = "REVIEW_ALREADY_EXISTS"
	CodeNotReviewAuthor         Code = "NOT_REVIEW_AUTHOR"
	CodeNotPartnerMember        Code = "NOT_PARTNER_MEMBER"
	CodeEmailAlreadyExists      Code = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeInvalidRequest          Code = "INVALID_REQUEST"
	CodeInternal                Code = "INTERNAL_SERVER_ERROR"
)

// definition pairs a code with its kind and default message.
type definition struct {
	kind    Kind
	message string
}

var definitions = map[Code]definition{
	CodeMemberNotFound:          {KindNotFound, "member not found"},
	CodeStoreNotFound:           {KindNotFound, "store not found"},
	CodeReservationNotFound:     {KindNotFound, "reservation not found"},
	CodeReviewNotFound:          {KindNotFound, "review not found"},
	CodeInvalidReservationTime:  {KindInvalidInput, "reservation time must be in the future"},
	CodeReservationTooClose:     {KindInvalidInput, "reservation must be at least one hour ahead"},
	CodeReservationTooFar:       {KindInvalidInput, "reservation must be within 30 days"},
	CodeOutsideBusinessHours:    {KindInvalidInput, "reservation time is outside business hours"},
	CodeDuplicateReservation:    {KindConflict, "member already has a reservation near this time"},
	CodeStoreFullyBooked:        {KindConflict, "store is fully booked for this time"},
	CodeInvalidStoreOwner:       {KindForbidden, "not the owner of this store"},
	CodeInvalidStatusUpdate:     {KindInvalidState, "invalid status update"},
	CodeInvalidCheckinStatus:    {KindInvalidState, "reservation cannot be checked in"},
	CodeEarlyCheckin:            {KindInvalidState, "check-in is not open yet"},
	CodeLateCheckin:             {KindInvalidState, "check-in window has closed"},
	CodeInvalidVerificationCode: {KindInvalidInput, "invalid verification code"},
	CodeNoShowTooEarly:          {KindInvalidState, "check-in window is still open"},
	CodeNotReservationOwner:     {KindForbidden, "not the owner of this reservation"},
	CodeInvalidReviewStatus:     {KindInvalidState, "only completed reservations can be reviewed"},
	CodeReviewAlreadyExists:     {KindConflict, "review already exists"},
	CodeNotReviewAuthor:         {KindForbidden, "not the author of this review"},
	CodeNotPartnerMember:        {KindForbidden, "partner members only"},
	CodeEmailAlreadyExists:      {KindConflict, "email already exists"},
	CodeInvalidCredentials:      {KindUnauthorized, "invalid credentials"},
	CodeInvalidRequest:          {KindInvalidInput, "invalid request"},
	CodeInternal:                {KindInternal, "internal server error"},
}

// Error is a business or infrastructure failure with a stable code.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so errors.Is(err, apperr.New(CodeX)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New returns the error registered for code with its default message.
func New(code Code) *Error {
	d, ok := definitions[code]
	if !ok {
		d = definitions[CodeInternal]
	}
	return &Error{Kind: d.kind, Code: code, Message: d.message}
}

// Newf is New with a custom message.
func Newf(code Code, format string, args ...any) *Error {
	e := New(code)
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Internal wraps an unexpected failure.  The cause is kept for logging and
// never rendered to clients.
func Internal(err error) *Error {
	e := New(CodeInternal)
	e.Err = err
	return e
}

// From extracts an *Error from err, wrapping anything else as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	return From(err).Code
}

// HTTPStatus maps a kind to the status code used by the HTTP layer.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState, KindInvalidInput, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
