package tracker

// Readable exposes read access and change callbacks over a tracked value.
type Readable[T any] interface {
	Get() T
	OnChange(fn func(oldValue, newValue T)) (cancel func())
}

// Writable exposes scoped mutation over a tracked value.
type Writable[T any] interface {
	Readable[T]
	Begin() (*WriteHandle[T], error)
	Mutate(fn func(*T)) error
	Set(v T) error
}
