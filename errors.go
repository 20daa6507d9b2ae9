package r48

import "errors"

var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrOutOfRange      = errors.New("value outside of device limits")
	ErrUnsupported     = errors.New("operation not supported by dialect")
	ErrNoBus           = errors.New("no bus configured")
	ErrUnknownDialect  = errors.New("unknown dialect")
)
