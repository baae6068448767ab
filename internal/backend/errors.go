package backend

// modelLoadError signals a model load or session-creation failure so the
// wire layer can tag it ModelLoad instead of Unknown.
type modelLoadError struct{ msg string }

func (e modelLoadError) Error() string { return "model load failed: " + e.msg }

// ErrModelLoad constructs a modelLoadError.
func ErrModelLoad(msg string) error { return modelLoadError{msg: msg} }

// IsModelLoad reports whether err indicates a model load failure.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}
