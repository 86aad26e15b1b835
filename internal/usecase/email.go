package usecase

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"

	"github.com/skip2/go-qrcode"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

type Email struct {
	To          []string
	From        string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	Attachments []EmailAttachment
}

type EmailAttachment struct {
	Name        string
	ContentType string
	Content     []byte
}

const defaultMailFrom = "no-reply@vailabel.local"

func (u Usecase) SendExportReadyEmail(ctx context.Context, to string, job Job, res ExportResult) error {
	if u.mailer == nil {
		return fmt.Errorf("mailer is not configured")
	}

	var url string
	if u.fileStorageProvider != nil {
		if s, err := u.fileStorageProvider.GetPresignedURL(ctx, res.Delivery.Location); err == nil {
			url = s
		}
	}

	body, err := buildExportReadyEmailBody(ExportReadyEmailData{
		Title:       "Export Ready",
		JobID:       job.ID.String(),
		Filename:    res.Filename,
		Size:        res.Size,
		Skipped:     res.Skipped.Total(),
		DownloadURL: url,
		QRCodeURL:   qrCodeDataURL(url),
		CurrentYear: u.now().Format("2006"),
	})
	if err != nil {
		return err
	}

	from := os.Getenv(config.ENV_KEY_MAIL_FROM)
	if from == "" {
		from = defaultMailFrom
	}
	return u.mailer.SendEmail(ctx, Email{
		To:      []string{to},
		From:    from,
		Subject: "Your export " + res.Filename + " is ready",
		Body:    body,
	})
}

//go:embed templates/*
var templates embed.FS

type ExportReadyEmailData struct {
	Title       string
	JobID       string
	Filename    string
	Size        int
	Skipped     int
	DownloadURL string
	QRCodeURL   string
	CurrentYear string
}

// qrCodeDataURL renders the download link as an inline PNG so it can be
// opened from a phone.
func qrCodeDataURL(link string) string {
	if link == "" {
		return ""
	}
	png, err := qrcode.Encode(link, qrcode.Low, 128)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func buildExportReadyEmailBody(data ExportReadyEmailData) (string, error) {
	tmpl, err := template.
		New("base.html").
		Funcs(template.FuncMap{
			"safeURL": func(s string) template.URL {
				return template.URL(s)
			},
		}).
		ParseFS(
			templates,
			"templates/base.html",
			"templates/export_ready.html",
		)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
