package umm

// kinds defined on a separate file without further dependencies, so it plays well with enumer.

// AccessKind distinguishes reads from writes when a device touches a region.
type AccessKind int

//go:generate go tool enumer -type=AccessKind kinds.go

const (
	AccessRead AccessKind = iota
	AccessWrite
)

// TriggerKind tells why a MigrationOp was created: a synchronous fault on a cross-device
// access (on-demand), or an explicit asynchronous Region.Prefetch call.
type TriggerKind int

//go:generate go tool enumer -type=TriggerKind kinds.go

const (
	TriggerOnDemand TriggerKind = iota
	TriggerPrefetch
)

// Direction classifies a migration by its destination: into an accelerator (ToDevice) or
// back to the host (ToHost). The profile report totals bytes separately per direction.
type Direction int

//go:generate go tool enumer -type=Direction kinds.go

const (
	ToDevice Direction = iota
	ToHost
)
