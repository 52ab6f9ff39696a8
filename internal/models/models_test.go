package models

import (
	"errors"
	"strings"
	"testing"
)

func TestParseComplexity(t *testing.T) {
	tests := []struct {
		in   string
		want Complexity
		ok   bool
	}{
		{"easy", ComplexityEasy, true},
		{"Easy", ComplexityEasy, true},
		{"EASY", ComplexityEasy, true},
		{" medium ", ComplexityMedium, true},
		{"advanced", ComplexityAdvanced, true},
		{"hard", ComplexityAdvanced, true},
		{"Hard", ComplexityAdvanced, true},
		{"", "", false},
		{"impossible", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseComplexity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseComplexity(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequiredMinutes(t *testing.T) {
	if RequiredMinutes[ComplexityEasy] != 15 || RequiredMinutes[ComplexityMedium] != 30 || RequiredMinutes[ComplexityAdvanced] != 45 {
		t.Errorf("unexpected schedule %v", RequiredMinutes)
	}
}

func TestCreateUserRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateUserRequest
		want error
	}{
		{"valid", CreateUserRequest{Email: "a@b.com", Password: "pw"}, nil},
		{"valid with role", CreateUserRequest{Email: "a@b.com", Password: "pw", Role: RoleAdmin}, nil},
		{"empty email", CreateUserRequest{Password: "pw"}, ErrEmptyEmail},
		{"bad email", CreateUserRequest{Email: "nope", Password: "pw"}, ErrInvalidEmail},
		{"email with space", CreateUserRequest{Email: "a @b.com", Password: "pw"}, ErrInvalidEmail},
		{"empty password", CreateUserRequest{Email: "a@b.com"}, ErrEmptyPassword},
		{"name too long", CreateUserRequest{Email: "a@b.com", Password: "pw", FullName: strings.Repeat("x", MaxFullNameLength+1)}, ErrFullNameTooLong},
		{"bad role", CreateUserRequest{Email: "a@b.com", Password: "pw", Role: "supervisor"}, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRedeemCodeRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"valid", "PRACTICE-30MIN-A1", nil},
		{"valid no dashes", "ABCD1234", nil},
		{"too short", "ABC", ErrMalformedCode},
		{"too long", strings.Repeat("A", MaxPrepaidCodeLength+1), ErrMalformedCode},
		{"lowercase", "practice-30min", ErrMalformedCode},
		{"spaces inside", "PRACT ICE-30", ErrMalformedCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := RedeemCodeRequest{Code: tt.code}
			if err := req.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate(%q) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestCreateChatSessionRequestValidate(t *testing.T) {
	neg := -1
	req := CreateChatSessionRequest{BudgetMinutes: &neg}
	if err := req.Validate(); !errors.Is(err, ErrNegativeBudget) {
		t.Errorf("expected ErrNegativeBudget, got %v", err)
	}
	zero := 0
	req = CreateChatSessionRequest{BudgetMinutes: &zero}
	if err := req.Validate(); err != nil {
		t.Errorf("zero budget should be valid, got %v", err)
	}
	if err := (&CreateChatSessionRequest{}).Validate(); err != nil {
		t.Errorf("empty request should be valid, got %v", err)
	}
}

func TestSelectOptionRequestValidate(t *testing.T) {
	if err := (&SelectOptionRequest{Option: "  "}).Validate(); !errors.Is(err, ErrEmptyOption) {
		t.Errorf("expected ErrEmptyOption, got %v", err)
	}
	if err := (&SelectOptionRequest{Option: "frontend"}).Validate(); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestRecordVisitRequestValidate(t *testing.T) {
	if err := (&RecordVisitRequest{}).Validate(); !errors.Is(err, ErrEmptyProfileID) {
		t.Errorf("expected ErrEmptyProfileID, got %v", err)
	}
	if err := (&RecordVisitRequest{ProfileID: "p-1"}).Validate(); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}
