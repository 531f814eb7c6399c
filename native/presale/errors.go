package presale

import (
	"errors"

	"nftpresale/core/state"
)

var (
	ErrNilState          = errors.New("presale: state not configured")
	ErrNotOwner          = errors.New("presale: caller is not the contract owner")
	ErrZeroAddress       = errors.New("presale: caller must not be the zero address")
	ErrInvalidWindow     = errors.New("presale: start time must be before end time")
	ErrEmptyURL          = errors.New("presale: data url must not be empty")
	ErrNonPositivePrice  = errors.New("presale: price must be positive")
	ErrInvalidAmount     = errors.New("presale: amount must not be negative")
	ErrAlreadyRegistered = errors.New("presale: address already registered")
	ErrNotWhitelisted    = errors.New("presale: address is not in the whitelist")
	ErrAlreadyMinted     = errors.New("presale: item already minted by this address")
	ErrPriceMismatch     = errors.New("presale: payment must equal the item price")
	ErrNoHoldings        = errors.New("presale: address has not minted any token")
	ErrSaleNotStarted    = errors.New("presale: sale has not started yet")
	ErrSaleEnded         = errors.New("presale: sale has ended")
)

// Kind groups failures into the coarse categories surfaced to callers. Every
// failed operation leaves prior state untouched, so the kind only drives how
// the error is reported, never any recovery logic.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindValidation
	KindConflict
	KindNotFound
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by the engine to its kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotOwner):
		return KindAuthorization
	case errors.Is(err, ErrZeroAddress),
		errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrEmptyURL),
		errors.Is(err, ErrNonPositivePrice),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNotWhitelisted),
		errors.Is(err, ErrPriceMismatch),
		errors.Is(err, ErrSaleNotStarted),
		errors.Is(err, ErrSaleEnded):
		return KindValidation
	case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrAlreadyMinted):
		return KindConflict
	case errors.Is(err, ErrNoHoldings):
		return KindNotFound
	}
	var notFound *state.NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	var outOfRange *state.OutOfRangeError
	if errors.As(err, &outOfRange) {
		return KindOutOfRange
	}
	return KindUnknown
}
