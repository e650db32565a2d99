package must

func Be(expr bool, msg string) {
	if !expr {
		panic("assertion failed: " + msg)
	}
}

// Value unwraps results that can only fail on programmer error, like parsing
// a constant URL.
func Value[T any](v T, err error) T {
	if nil != err {
		panic("expected nil error, got: " + err.Error())
	}

	return v
}
