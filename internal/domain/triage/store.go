package triage

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// VerdictStore is implemented by the persistence layer. Implementations own
// durability and concurrency; a verdict read back after Insert must equal the
// inserted one field for field, CreatedAt included.
type VerdictStore interface {
	// Insert persists v and returns its registration id. When v carries no
	// registration id the store allocates one and records it on v once the
	// write succeeds. A failed Insert leaves v untouched.
	Insert(ctx context.Context, v *Verdict) (string, error)
	GetByRegistrationID(ctx context.Context, id string) (*Verdict, error)
	ListAll(ctx context.Context) ([]*Verdict, error)
	ListByDepartment(ctx context.Context, dept Department) ([]*Verdict, error)
}

// RegistrationIDAllocator produces opaque registration identifiers.
type RegistrationIDAllocator func() (string, error)

var registrationIDSpace = big.NewInt(1_000_000)

// NewRegistrationID returns "MED" followed by six random decimal digits.
func NewRegistrationID() (string, error) {
	n, err := rand.Int(rand.Reader, registrationIDSpace)
	if err != nil {
		return "", fmt.Errorf("allocate registration id: %w", err)
	}
	return fmt.Sprintf("MED%06d", n.Int64()), nil
}
