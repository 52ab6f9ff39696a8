package notify

import (
	"context"
	"strings"
	"testing"
)

func TestNewClient_MissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials, got nil")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Error("expected error without from number, got nil")
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	cli, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token"), WithFromNumber("+15550100"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cli.from != "+15550100" {
		t.Errorf("unexpected from number %q", cli.from)
	}
}

func TestWelcomeBody(t *testing.T) {
	body := WelcomeBody("Ada Lovelace")
	if !strings.Contains(body, "Ada Lovelace") {
		t.Errorf("welcome body missing name: %q", body)
	}
}

func TestMockSender_Records(t *testing.T) {
	m := NewMockSender()
	if err := m.SendSMS(context.Background(), "+15550100", "hello"); err != nil {
		t.Fatalf("mock send failed: %v", err)
	}
	if len(m.SentMessages) != 1 || m.SentMessages[0].To != "+15550100" {
		t.Errorf("unexpected recorded messages %+v", m.SentMessages)
	}
}
