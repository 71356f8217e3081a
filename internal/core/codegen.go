package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// existsFunc reports whether a candidate code is already taken within the
// caller's (scope, owner) pair. Implementations query the storage layer.
type existsFunc func(ctx context.Context, candidate string) (bool, error)

// randomHex returns n hex characters from crypto/rand.
func randomHex(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to continue.
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(buf)[:n]
}

// generateUniqueCode runs the bounded retry-then-fallback loop shared by all
// code generators: up to maxTries random candidates checked via exists, then
// one longer fallback candidate returned unchecked. Uniqueness is ultimately
// guaranteed by the storage layer's unique constraint, not by this loop; the
// retries only make constraint violations at insert time unlikely.
func generateUniqueCode(ctx context.Context, maxTries int, gen func() string, fallback func() string, exists existsFunc) (string, error) {
	for i := 0; i < maxTries; i++ {
		candidate := gen()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("uniqueness check failed: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return fallback(), nil
}

// GenerateInvoiceNo produces a unique-per-owner invoice number in the form
// INV-YYYYMMDD-XXXXX, retrying up to 10 times before falling back to a
// timestamped candidate with a longer random suffix.
func GenerateInvoiceNo(ctx context.Context, exists existsFunc) (string, error) {
	return generateUniqueCode(ctx, 10,
		func() string {
			return "INV-" + time.Now().Format("20060102") + "-" + randomHex(5)
		},
		func() string {
			return "INV-" + time.Now().Format("20060102150405") + "-" + randomHex(7)
		},
		exists)
}

// GenerateCustomerCode produces a CUST-XXXXXX code, falling back to a 10-hex
// suffix after 10 collisions.
func GenerateCustomerCode(ctx context.Context, exists existsFunc) (string, error) {
	return generateUniqueCode(ctx, 10,
		func() string { return "CUST-" + strings.ToUpper(randomHex(6)) },
		func() string { return "CUST-" + strings.ToUpper(randomHex(10)) },
		exists)
}

// GenerateSKU produces a SKU-XXXXXX code with 5 checked tries and an
// unchecked same-length fallback.
func GenerateSKU(ctx context.Context, exists existsFunc) (string, error) {
	gen := func() string { return "SKU-" + strings.ToUpper(randomHex(6)) }
	return generateUniqueCode(ctx, 5, gen, gen, exists)
}
