package dataset

// Kind identifies the payload type of a cell.
type Kind int

const (
	KindImage Kind = iota + 1
	KindExtrinsic
	KindIntrinsic
	KindDataBase
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindExtrinsic:
		return "extrinsic"
	case KindIntrinsic:
		return "intrinsic"
	case KindDataBase:
		return "database"
	default:
		return "unknown"
	}
}

// Data is a typed cell payload. The set of implementations is closed:
// *Image, *ExtrinsicData, *IntrinsicData and *DataBase.
type Data interface {
	Kind() Kind
	cloneData() Data
}

// Compile-time interface checks.
var (
	_ Data = (*Image)(nil)
	_ Data = (*ExtrinsicData)(nil)
	_ Data = (*IntrinsicData)(nil)
	_ Data = (*DataBase)(nil)
)

// Clone returns a deep copy of d.
func Clone(d Data) Data {
	if d == nil {
		return nil
	}
	return d.cloneData()
}
