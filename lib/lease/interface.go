package lease

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ILeaseManager defines the interface for a lease provider.
type ILeaseManager interface {
	// Grant creates a new lease with the given TTL (clamped to
	// [MinLeaseTTL, MaxLeaseTTL]) and returns its description.
	Grant(ctx context.Context, ttl time.Duration) (Info, error)

	// Revoke removes a lease. The keys attached to it are reported to the
	// OnRevoke callback.
	Revoke(ctx context.Context, id int64) error

	// Renew pushes a live lease's expiry into the future and returns the
	// lease's TTL. Renewing an expired or unknown lease is an error.
	Renew(ctx context.Context, id int64) (time.Duration, error)

	// Attach associates a key with a lease.
	Attach(ctx context.Context, id int64, key string) error

	// Detach removes a key from a lease.
	Detach(ctx context.Context, id int64, key string) error

	// LookUp returns the description of a lease.
	LookUp(ctx context.Context, id int64) (Info, error)

	// GetLease returns the ID of the lease the given key is attached to.
	GetLease(ctx context.Context, key string) (int64, error)

	// Leases returns all leases, sorted by remaining TTL.
	Leases(ctx context.Context) ([]Info, error)

	// Demote marks every lease as never expiring and disarms the expiry
	// queue. Used when this node stops being responsible for expiry.
	Demote(ctx context.Context) error

	// Promote re-arms expiry for every lease, extending each by extend to
	// give holders time to renew after a responsibility change.
	Promote(ctx context.Context, extend time.Duration) error

	// Close stops the expiry sweeper and the revocation dispatcher. The
	// manager must not be used afterwards.
	Close() error
}

// Info is the caller-visible description of a lease.
type Info struct {
	ID           int64
	TTL          time.Duration
	RemainingTTL time.Duration
	Keys         []string
}

// RevokedLease describes a revocation delivered to the OnRevoke callback.
type RevokedLease struct {
	ID      int64
	Keys    []string
	Expired bool // true if revoked by the expiry sweeper, false if explicit
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCLeaseNotFound:
		errorCode = "LeaseNotFound"
	case RetCLeaseExpired:
		errorCode = "LeaseExpired"
	case RetCManagerClosed:
		errorCode = "ManagerClosed"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("LeaseError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode identifies a lease failure kind.
type RetCode int32

const (
	// RetCLeaseNotFound signals that no lease with the given ID exists.
	RetCLeaseNotFound RetCode = iota + 1
	// RetCLeaseExpired signals that the lease exists but is past its expiry.
	RetCLeaseExpired
	// RetCManagerClosed signals an operation on a closed manager.
	RetCManagerClosed
)

// IsNotFound reports whether err signals an unknown lease.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == RetCLeaseNotFound
}

// IsExpired reports whether err signals an expired lease.
func IsExpired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == RetCLeaseExpired
}
