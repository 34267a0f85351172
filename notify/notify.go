// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify delivers event notifications (new registrations, group
// updates, comments) to organisers and group owners.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// Templates
const (
	TemplateRegistrationCheck  = "registration_check"
	TemplateRegistrationUpdate = "registration_update"
	TemplateWelcome            = "welcome"
	TemplateNewMessage         = "new_message"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

type Recipient struct {
	Name  string
	Email string
}

func (r Recipient) String() string {
	if r.Name == "" {
		return r.Email
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Email)
}

// Mail is a rendered notification.
type Mail struct {
	Subject string
	Body    string
}

// Notifier sends a rendered template to a set of recipients.
type Notifier interface {
	Send(ctx context.Context, template string, to []Recipient, data map[string]any) error
}

// Build renders the subject and body for a template.
func Build(name string, data map[string]any) (Mail, error) {
	var subject string
	switch name {
	case TemplateRegistrationCheck:
		subject = "New registration"
		if g, ok := data["GroupName"].(string); ok && g != "" {
			subject = "New registration for " + g
		}
	case TemplateRegistrationUpdate:
		subject = "Lost Registration Change"
	case TemplateWelcome:
		subject = "Welcome to Lost, your registration is completed."
	case TemplateNewMessage:
		subject = "New message on lost.lu"
	default:
		return Mail{}, fmt.Errorf("unsupported notification template: %s", name)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".txt", data); err != nil {
		return Mail{}, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return Mail{Subject: subject, Body: strings.TrimSpace(buf.String())}, nil
}

// Log writes notifications to the logger instead of delivering them.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, name string, to []Recipient, data map[string]any) error {
	mail, err := Build(name, data)
	if err != nil {
		return err
	}
	recipients := make([]string, len(to))
	for i, r := range to {
		recipients[i] = r.String()
	}
	l.logger.Info("notification",
		zap.String("template", name),
		zap.Strings("to", recipients),
		zap.String("subject", mail.Subject),
		zap.String("body", mail.Body),
	)
	return nil
}
