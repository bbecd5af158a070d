package types

// Entity is the base type for height-stamped ChainState records.
// Embed this in domain types to get creation/update block heights.
// ChainState is deterministic: records are stamped with the logical clock
// (block height), never with wall time.
type Entity struct {
	CreatedAt uint64 `json:"created_at"`
	UpdatedAt uint64 `json:"updated_at"`
}

// NewEntity creates a new Entity stamped at the given block height.
func NewEntity(height uint64) Entity {
	return Entity{
		CreatedAt: height,
		UpdatedAt: height,
	}
}

// Touch updates the UpdatedAt height.
func (e *Entity) Touch(height uint64) {
	e.UpdatedAt = height
}

// Age returns how many blocks have elapsed since the entity was created.
func (e Entity) Age(current uint64) uint64 {
	if current < e.CreatedAt {
		return 0
	}
	return current - e.CreatedAt
}

// SinceUpdate returns how many blocks have elapsed since the last update.
func (e Entity) SinceUpdate(current uint64) uint64 {
	if current < e.UpdatedAt {
		return 0
	}
	return current - e.UpdatedAt
}
