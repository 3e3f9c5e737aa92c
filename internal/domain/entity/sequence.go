package entity

// SequenceCounter contador por namespace (prefijo). LastValue solo crece;
// los huecos están permitidos, la reutilización no.
type SequenceCounter struct {
	Prefix    string
	LastValue int64
}
