package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetRendersCode(t *testing.T) {
	msg, err := PasswordReset("a@example.com", "Mona", "482913", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", msg.To)
	assert.Contains(t, msg.HTML, "482913")
	assert.Contains(t, msg.HTML, "10m0s")
}

func TestOrderPlacedRendersItems(t *testing.T) {
	order := &models.Order{
		OrderNumber: "ORD-20240101-ABC123",
		TotalPrice:  decimal.RequireFromString("20"),
		Items: []models.OrderItem{
			{ProductName: "Mug <b>", Quantity: 2, UnitPrice: decimal.RequireFromString("10")},
		},
	}

	msg, err := OrderPlaced("a@example.com", "Mona", order)
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "ORD-20240101-ABC123")
	assert.Contains(t, msg.HTML, "20.00")
	assert.Contains(t, msg.HTML, "Mug &lt;b&gt;", "product names are escaped")
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{
		Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p",
		From: "no-reply@example.com", FromName: "Storefront",
	})

	var gotAddr string
	var gotMsg []byte
	sender.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.NotNil(t, a)
		assert.Equal(t, []string{"b@example.com"}, to)
		return nil
	}

	err := sender.Send(context.Background(), Message{To: "b@example.com", Subject: "Hi", HTML: "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: Storefront <no-reply@example.com>\r\n"))
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
}
