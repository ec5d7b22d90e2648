package utils

// ValueOr dereferences v, returning fallback when v is nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// Value dereferences v, returning the zero value when v is nil.
func Value[T any](v *T) T {
	return ValueOr(v, *new(T))
}

func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty returns nil for an empty string so optional JSON fields serialise as null.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
