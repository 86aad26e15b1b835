package email

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

func TestBuildMsg(t *testing.T) {
	msg, err := buildMsg(usecase.Email{
		From:    "no-reply@vailabel.local",
		To:      []string{"ana@example.com"},
		Subject: "Export ready",
		Body:    "<p>done</p>",
		Attachments: []usecase.EmailAttachment{
			{Name: "classes.txt", ContentType: "text/plain", Content: []byte("car\nroad")},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Subject: Export ready")
	assert.Contains(t, out, "<ana@example.com>")
	assert.Contains(t, out, "classes.txt")
}

func TestBuildMsgRejectsBadAddress(t *testing.T) {
	_, err := buildMsg(usecase.Email{From: "no-reply@vailabel.local", To: []string{"not an address"}})
	assert.ErrorContains(t, err, "email: to")

	_, err = buildMsg(usecase.Email{From: "", To: []string{"ana@example.com"}})
	assert.ErrorContains(t, err, "email: from")
}

func TestNewEmailProviderValidates(t *testing.T) {
	_, err := NewEmailProvider("", "", "", "", nil)
	assert.Error(t, err)

	_, err = NewEmailProvider("smtp.example.com", "", "", "abc", nil)
	assert.ErrorContains(t, err, "invalid SMTP port")
}
