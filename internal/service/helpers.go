package service

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"time"

	"storefront/internal/apperr"

	"github.com/google/uuid"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber returns a human readable code like ORD-20240613-7KQ2XM.
func newOrderNumber(now time.Time) string {
	return "ORD-" + now.UTC().Format("20060102") + "-" + randomString(orderNumberAlphabet, 6)
}

func randomDigits(n int) string {
	return randomString("0123456789", n)
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}

// sortedProductIDs returns the distinct ids in ascending order, the order
// in which stock locks must be taken.
func sortedProductIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func productLockKeys(ids []uuid.UUID) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "product:" + id.String()
	}
	return keys
}

// describe returns the user-facing text of a domain error.
func describe(err error) string {
	if e, ok := apperr.From(err); ok {
		return e.Description
	}
	return err.Error()
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPage bounds client supplied paging values.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
