package integrity

// Variant identifies which accepted layout a document matched.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantEnvelope
	VariantBare
	VariantLegacy
)

func (v Variant) String() string {
	switch v {
	case VariantEnvelope:
		return "envelope"
	case VariantBare:
		return "bare"
	case VariantLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// variantOrder is the priority in which layouts are tried.
var variantOrder = []struct {
	schema  string
	variant Variant
}{
	{SchemaEnvelope, VariantEnvelope},
	{SchemaSnapshot, VariantBare},
	{SchemaLegacy, VariantLegacy},
}

// Classify reports the first layout raw satisfies, or ErrUnrecognized.
//
// An envelope is only classified by its outer shape; the caller still has to
// check the payload under "data" with CheckShape.
func Classify(raw []byte) (Variant, error) {
	for _, candidate := range variantOrder {
		err := check(candidate.schema, raw)
		if err == nil {
			return candidate.variant, nil
		}
		if _, ok := err.(*ShapeError); !ok {
			return VariantUnknown, err
		}
	}
	return VariantUnknown, ErrUnrecognized
}
