package grid

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidLayout is returned by SetInitialState when the layout repeats a bucket key.
	ErrInvalidLayout = errors.New("invalid bucket layout")
	// ErrFetchCancelled marks a fetch aborted through its bucket's cancellation context.
	ErrFetchCancelled = errors.New("bucket fetch cancelled")
	ErrNotInitialized = errors.New("grid state not initialized")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrStoreClosed    = errors.New("grid store closed")
)

// FetchError is any fetch failure that was not a cancellation. The bucket it
// names has already reverted to Empty when the error is returned.
type FetchError struct {
	BucketKey string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch bucket %s: %v", e.BucketKey, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsCancelled reports whether err is the cancelled failure kind.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrFetchCancelled) || errors.Is(err, context.Canceled)
}
