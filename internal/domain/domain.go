package domain

// Zone is the pricing tier attached to a restaurant. It is a business
// attribute copied from the restaurant row, never derived from coordinates.
type Zone string

const (
	ZoneCapital  Zone = "capital"
	ZoneInterior Zone = "interior"
)

func (z Zone) String() string {
	return string(z)
}

func (z Zone) Valid() bool {
	return z == ZoneCapital || z == ZoneInterior
}

// ServiceType is the second axis of the 2x2 price matrix.
type ServiceType string

const (
	ServicePickup   ServiceType = "pickup"
	ServiceDelivery ServiceType = "delivery"
)

func (st ServiceType) String() string {
	return string(st)
}

func (st ServiceType) Valid() bool {
	return st == ServicePickup || st == ServiceDelivery
}

// ActorType identifies who performed a mutation, recorded in status history.
type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorAdmin    ActorType = "admin"
	ActorSystem   ActorType = "system"
	ActorDriver   ActorType = "driver"
)

func (a ActorType) String() string {
	return string(a)
}
