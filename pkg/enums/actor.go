package enums

// ActorKind identifies who triggered a mutation.
type ActorKind string

const (
	ActorCustomer ActorKind = "customer"
	ActorVendor   ActorKind = "vendor"
	ActorAdmin    ActorKind = "admin"
	ActorSystem   ActorKind = "system"
)

var validActorKinds = []ActorKind{ActorCustomer, ActorVendor, ActorAdmin, ActorSystem}

func (k ActorKind) String() string { return string(k) }

func (k ActorKind) IsValid() bool { return oneOf(validActorKinds, k) }

func ParseActorKind(value string) (ActorKind, error) {
	return parse(validActorKinds, value, "actor kind")
}
