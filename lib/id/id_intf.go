package id

// Gen generates the number uuid.
type Gen func() uint64

type UUIDGen interface {
	NumberUUID() uint64
	StrUUID() string
}

var _ UUIDGen = (*uuidDelegator)(nil)

type uuidDelegator struct {
	number Gen
	str    func() string
}

func (id *uuidDelegator) NumberUUID() uint64 { return id.number() }
func (id *uuidDelegator) StrUUID() string    { return id.str() }
