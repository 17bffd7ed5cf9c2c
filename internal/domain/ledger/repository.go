package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. Entries are append-only:
// there is no update or delete operation.
type Repository interface {
	// Insert writes a new entry. Uniqueness violations on the store stream's
	// reference or on a refund's reference surface as ErrDuplicateReference.
	Insert(ctx context.Context, entry *Entry) error

	// FindByReference returns all entries on a stream anchored to the given
	// reference id, newest first.
	FindByReference(ctx context.Context, stream Stream, referenceID uuid.UUID) ([]*Entry, error)

	// FindFunding returns the entry that committed customer funds to the
	// given reference (a SPEND or HOLD), or nil if the stream never funded it.
	FindFunding(ctx context.Context, stream Stream, referenceID uuid.UUID) (*Entry, error)

	// HasRefund reports whether a REFUND entry already exists on the stream
	// for the given reference.
	HasRefund(ctx context.Context, stream Stream, referenceID uuid.UUID) (bool, error)

	// ListForAccount returns paginated entries for (storeID, accountKey) on
	// the given stream, newest first, plus the total count.
	ListForAccount(ctx context.Context, stream Stream, storeID, accountKey uuid.UUID, limit, offset int) ([]*Entry, int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrInvalidAmount rejects zero-amount appends
type ErrInvalidAmount struct {
	Stream Stream
}

func (e ErrInvalidAmount) Error() string {
	return "ledger entry amount must be non-zero on stream " + string(e.Stream)
}

// Is lets errors.Is match any ErrInvalidAmount regardless of fields
func (e ErrInvalidAmount) Is(target error) bool {
	_, ok := target.(ErrInvalidAmount)
	return ok
}

// ErrInvalidType rejects an entry type the stream does not accept
type ErrInvalidType struct {
	Stream Stream
	Type   EntryType
}

func (e ErrInvalidType) Error() string {
	return "entry type " + string(e.Type) + " is not valid on stream " + string(e.Stream)
}

// Is lets errors.Is match any ErrInvalidType regardless of fields
func (e ErrInvalidType) Is(target error) bool {
	_, ok := target.(ErrInvalidType)
	return ok
}

// ErrDuplicateReference indicates a uniqueness rule was violated: at most one
// store-stream entry per order, and at most one refund per reference. Callers
// treat this as already-processed, not as a hard failure.
type ErrDuplicateReference struct {
	Stream      Stream
	ReferenceID uuid.UUID
}

func (e ErrDuplicateReference) Error() string {
	return "ledger entry already exists on stream " + string(e.Stream) + " for reference " + e.ReferenceID.String()
}

// Is lets errors.Is match any ErrDuplicateReference regardless of fields
func (e ErrDuplicateReference) Is(target error) bool {
	_, ok := target.(ErrDuplicateReference)
	return ok
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	ReferenceID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found for reference: " + e.ReferenceID.String()
}

func (e ErrEntryNotFound) Is(target error) bool {
	_, ok := target.(ErrEntryNotFound)
	return ok
}
