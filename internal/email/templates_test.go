package email

import (
	"strings"
	"testing"
)

func TestRender_GenerateOTPCarriesCode(t *testing.T) {
	subject, html, err := Render(TemplateGenerateOTP, TemplateData{Email: "a@x.com", OTP: "042137"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject == "" {
		t.Fatalf("expected subject")
	}
	if !strings.Contains(html, "042137") {
		t.Fatalf("otp missing from body: %s", html)
	}
}

func TestRender_WelcomeAndVerifiedCarryEmail(t *testing.T) {
	for _, name := range []string{TemplateWelcomeUser, TemplateVerifiedUser} {
		subject, html, err := Render(name, TemplateData{Email: "a@x.com"})
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if subject == "" || !strings.Contains(html, "a@x.com") {
			t.Fatalf("unexpected render for %s: subject=%q body=%s", name, subject, html)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	if _, _, err := Render("password_reset", TemplateData{}); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestRender_EscapesHTMLInData(t *testing.T) {
	_, html, err := Render(TemplateWelcomeUser, TemplateData{Email: "<script>x</script>@x.com"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("template data must be escaped: %s", html)
	}
}
