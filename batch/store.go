package batch

import "context"

type Store interface {
	Put(ctx context.Context, b *Batch) error
	Get(ctx context.Context, batchID uint64) (*Batch, error)
	PutLine(ctx context.Context, line *TransferLine) error
	GetLine(ctx context.Context, batchID, index uint64) (*TransferLine, error)
	ListLines(ctx context.Context, batchID uint64) ([]*TransferLine, error)
	PutLineCount(ctx context.Context, batchID, count uint64) error
	LineCount(ctx context.Context, batchID uint64) (uint64, error)
}
