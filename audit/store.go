package audit

import "context"

type Store interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, opts ListOpts) ([]*Event, error)
}

// ListOpts bounds an audit log read. Events come back in ascending
// sequence order starting at AfterID (exclusive).
type ListOpts struct {
	AfterID uint64
	Limit   int
}
