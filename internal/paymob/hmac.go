package paymob

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"strings"
)

// HMACValidator checks the signature Paymob attaches to transaction callbacks.
type HMACValidator struct {
	secret []byte
}

func NewHMACValidator(secret string) *HMACValidator {
	return &HMACValidator{secret: []byte(secret)}
}

// Concatenate joins the signed fields in the order Paymob documents
// (lexicographic by key). Booleans are lowercase.
func Concatenate(t Transaction) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(t.AmountCents, 10))
	b.WriteString(t.CreatedAt)
	b.WriteString(t.Currency)
	b.WriteString(strconv.FormatBool(t.ErrorOccured))
	b.WriteString(strconv.FormatBool(t.HasParentTransaction))
	b.WriteString(strconv.FormatInt(t.ID, 10))
	b.WriteString(strconv.FormatInt(t.IntegrationID, 10))
	b.WriteString(strconv.FormatBool(t.Is3DSecure))
	b.WriteString(strconv.FormatBool(t.IsAuth))
	b.WriteString(strconv.FormatBool(t.IsCapture))
	b.WriteString(strconv.FormatBool(t.IsRefunded))
	b.WriteString(strconv.FormatBool(t.IsStandalonePayment))
	b.WriteString(strconv.FormatBool(t.IsVoided))
	b.WriteString(strconv.FormatInt(t.Order.ID, 10))
	b.WriteString(strconv.FormatInt(t.Owner, 10))
	b.WriteString(strconv.FormatBool(t.Pending))
	b.WriteString(t.SourceData.Pan)
	b.WriteString(t.SourceData.SubType)
	b.WriteString(t.SourceData.Type)
	b.WriteString(strconv.FormatBool(t.Success))
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA512 of the transaction.
func (v *HMACValidator) Sign(t Transaction) string {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write([]byte(Concatenate(t)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares received against the expected signature in constant time,
// ignoring hex case.
func (v *HMACValidator) Validate(t Transaction, received string) bool {
	if received == "" || len(v.secret) == 0 {
		return false
	}
	expected := v.Sign(t)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(received))))
}
