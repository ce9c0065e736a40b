// Package invoice allocates daily sequential invoice numbers of the form
// INV<YYYYMMDD><NNNNNN>.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grocermate/backend/internal/store"
)

const (
	prefixLiteral = "INV"
	dateLayout    = "20060102"
	sequenceWidth = 6
	MaxSequence   = 999999
	numberLength  = len(prefixLiteral) + len(dateLayout) + sequenceWidth
)

var ErrSequenceExhausted = errors.New("daily invoice sequence exhausted")

// Sequencer reads the last committed number for a prefix inside the caller's
// transaction. store.Tx satisfies it.
type Sequencer interface {
	LastInvoiceNumber(ctx context.Context, prefix string) (string, error)
}

type Allocator struct{}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate returns the next number for the UTC day of at. Two concurrent
// callers may receive the same number; the unique constraint on the invoice
// number rejects the second commit and the caller retries.
func (a *Allocator) Allocate(ctx context.Context, seq Sequencer, at time.Time) (string, error) {
	prefix := Prefix(at)
	last, err := seq.LastInvoiceNumber(ctx, prefix)
	if err != nil {
		return "", err
	}

	next := 1
	if last != "" {
		n, err := Sequence(last)
		if err != nil || !strings.HasPrefix(last, prefix) {
			return "", &store.PersistenceError{Op: "read last invoice number", Err: fmt.Errorf("malformed invoice number %q", last)}
		}
		next = n + 1
	}
	if next > MaxSequence {
		return "", &store.ConflictError{Op: "allocate invoice number", Err: ErrSequenceExhausted}
	}
	return Format(at, next), nil
}

func Prefix(at time.Time) string {
	return prefixLiteral + at.UTC().Format(dateLayout)
}

func Format(at time.Time, seq int) string {
	return fmt.Sprintf("%s%0*d", Prefix(at), sequenceWidth, seq)
}

// Sequence extracts the trailing sequence from a well-formed number.
func Sequence(number string) (int, error) {
	if len(number) != numberLength || !strings.HasPrefix(number, prefixLiteral) {
		return 0, fmt.Errorf("invalid invoice number %q", number)
	}
	if _, err := time.Parse(dateLayout, number[len(prefixLiteral):len(prefixLiteral)+len(dateLayout)]); err != nil {
		return 0, fmt.Errorf("invalid invoice date in %q", number)
	}
	digits := number[numberLength-sequenceWidth:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("invalid invoice sequence in %q", number)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid invoice sequence in %q", number)
	}
	return n, nil
}

// Valid reports whether number is a well-formed invoice number.
func Valid(number string) bool {
	_, err := Sequence(number)
	return err == nil
}
