package model

// OrderResponse reports the outcome of persisting one composed leaf.
type OrderResponse struct {
	Order  Order    `json:"order"`
	Errors []string `json:"errors,omitempty"`
}

// OK reports whether the leaf passed validation.
func (r OrderResponse) OK() bool {
	return len(r.Errors) == 0
}

// DescriptorResponse acknowledges an administrative call by descriptor.
type DescriptorResponse struct {
	ID string `json:"id"`
}

// LifecycleState reports whether an entity is live.
type LifecycleState uint8

const (
	LifecycleInactive LifecycleState = iota
	LifecycleActive
)

func (s LifecycleState) String() string {
	if s == LifecycleActive {
		return "Active"
	}
	return "Inactive"
}

// StatusResponse reports an entity lifecycle state.
type StatusResponse struct {
	State LifecycleState `json:"state"`
}
