package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		kind   Kind
		status int
	}{
		{"not found", NotFound("event"), KindNotFound, http.StatusNotFound},
		{"validation", InvalidInput("members[0].email", "email is invalid"), KindValidation, http.StatusBadRequest},
		{"capacity", CapacityExceeded("only 2 tickets available for this time slot", 2), KindConflict, http.StatusConflict},
		{"already paid", AlreadyPaid(), KindConflict, http.StatusConflict},
		{"already used", AlreadyUsed(), KindDenied, http.StatusConflict},
		{"payment not completed", PaymentNotCompleted(), KindPrecondition, http.StatusUnprocessableEntity},
		{"payment failed", PaymentFailed("invalid signature"), KindExternal, http.StatusPaymentRequired},
		{"gateway", GatewayError(fmt.Errorf("timeout")), KindExternal, http.StatusBadGateway},
		{"media store", ExternalServiceError("cloudinary", "upload rejected"), KindExternal, http.StatusBadGateway},
		{"timeout", Timeout(), KindExternal, http.StatusGatewayTimeout},
		{"email", EmailError(fmt.Errorf("dial tcp: refused")), KindExternal, http.StatusBadGateway},
		{"database", DatabaseError(sql.ErrConnDone), KindInternal, http.StatusInternalServerError},
		{"access denied", AccessDenied(), KindUnauthorized, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Kind(); got != tt.kind {
				t.Errorf("Kind() = %s, want %s", got, tt.kind)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.status)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", NotFound("event"))
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("expected wrapped not_found, got %s", KindOf(wrapped))
	}
	if !HasCode(wrapped, ErrCodeNotFound) {
		t.Error("HasCode should see through wrapping")
	}
	if KindOf(sql.ErrNoRows) != KindInternal {
		t.Error("plain errors should be internal")
	}
	if KindOf(nil) != "" {
		t.Error("nil error should have no kind")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := sql.ErrConnDone
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"gateway", GatewayError(cause), ErrCodeGatewayError},
		{"store", StoreError("content store", cause), ErrCodeStoreError},
		{"database", DatabaseError(cause), ErrCodeDatabase},
		{"email", EmailError(cause), ErrCodeEmailError},
		{"plain", Wrap(cause, ErrCodeInternal, "internal error"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if !stderrors.Is(tt.err, cause) {
				t.Error("cause should be reachable through Unwrap")
			}
		})
	}
}

func TestToAppError(t *testing.T) {
	appErr := ToAppError(sql.ErrTxDone)
	if appErr.Code != ErrCodeInternal {
		t.Errorf("expected internal code, got %s", appErr.Code)
	}
	if appErr.Unwrap() != sql.ErrTxDone {
		t.Error("cause should be preserved")
	}

	original := Conflict("booking already paid")
	if ToAppError(original) != original {
		t.Error("AppError should pass through unchanged")
	}
}

func TestToJSON(t *testing.T) {
	body := InvalidInput("selectedDate", "date not offered").WithDetails("2026-01-01").ToJSON()
	if body["kind"] != KindValidation {
		t.Errorf("unexpected kind %v", body["kind"])
	}
	fields, ok := body["fields"].(map[string]interface{})
	if !ok || fields["field"] != "selectedDate" {
		t.Errorf("field not carried: %v", body["fields"])
	}
	if body["details"] != "2026-01-01" {
		t.Errorf("details not carried: %v", body["details"])
	}
}
