package errors

// Public wraps err with a message that is safe to show to API clients.
func Public(err error, msg string) error {
	return &publicError{
		msg: msg,
		err: err,
	}
}

type publicError struct {
	msg string
	err error
}

func (pe publicError) Public() string {
	return pe.msg
}

func (pe publicError) Error() string {
	return pe.err.Error()
}

func (pe publicError) Unwrap() error {
	return pe.err
}

// PublicMessage returns the public message attached to err, or fallback.
func PublicMessage(err error, fallback string) string {
	var pe interface{ Public() string }
	if As(err, &pe) {
		return pe.Public()
	}
	return fallback
}
