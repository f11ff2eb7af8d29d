package shortener

import (
	"fmt"
	"math"

	"github.com/sqids/sqids-go"
)

const (
	// DefaultAlphabet is a fixed permutation of [a-zA-Z0-9] so that consecutive
	// ids do not produce consecutive codes. Changing it invalidates every issued code.
	DefaultAlphabet = "7HRk4sFyfMjKTwmAt2WJiPerZDvxcCGL6pB3h0dVEa1Yl9OUSqzonguQIX8bN5"
	// DefaultMinLength pads short codes so the first ids are not one character long.
	DefaultMinLength = 6
)

// Allocator maps store-assigned ids to public codes and back.
// The mapping is a deterministic bijection for a given alphabet and minimum length.
type Allocator struct {
	sq *sqids.Sqids
}

// NewAllocator creates an Allocator. The alphabet and minimum length are part of
// the deployment configuration and must never change once codes are issued.
func NewAllocator(alphabet string, minLength uint8) (*Allocator, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}

	sq, err := sqids.New(sqids.Options{
		Alphabet:  alphabet,
		MinLength: minLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init code allocator: %w", err)
	}

	return &Allocator{sq: sq}, nil
}

// Encode returns the code for a positive id.
func (a *Allocator) Encode(id int64) (Code, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	code, err := a.sq.Encode([]uint64{uint64(id)})
	if err != nil {
		return "", fmt.Errorf("encode id %d: %w", id, err)
	}

	return Code(code), nil
}

// Decode returns the id a code was issued for.
// Only canonical encodings decode; any other string returns ErrNotFound.
func (a *Allocator) Decode(code Code) (int64, error) {
	if code == "" {
		return 0, ErrNotFound
	}

	nums := a.sq.Decode(string(code))
	if len(nums) != 1 || nums[0] == 0 || nums[0] > math.MaxInt64 {
		return 0, ErrNotFound
	}

	id := int64(nums[0])

	// Several strings can decode to the same number; only the one Encode
	// produces is a valid code.
	canonical, err := a.Encode(id)
	if err != nil || canonical != code {
		return 0, ErrNotFound
	}

	return id, nil
}
