package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// Nombres de plantilla disponibles para Render.
const (
	TemplateWelcomeUser  = "welcome_user"
	TemplateGenerateOTP  = "generate_otp"
	TemplateVerifiedUser = "verified_user"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[string]string{
	TemplateWelcomeUser:  "Welcome to the STAR platform",
	TemplateGenerateOTP:  "Verify your email address",
	TemplateVerifiedUser: "Your email has been verified",
}

// TemplateData es el contexto que reciben las plantillas de correo.
type TemplateData struct {
	Email string
	OTP   string
}

// Render devuelve subject y cuerpo HTML para la plantilla pedida.
func Render(name string, data TemplateData) (subject, html string, err error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template: %s", name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
