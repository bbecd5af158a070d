package chainstate

import "github.com/xraph/chainstate/id"

// ID is the correlation identifier type used for audit event refs.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
