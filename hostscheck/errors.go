package hostscheck

// Reason tells why content was rejected
type Reason string

// rejection reasons
const (
	ReasonTooSmall         Reason = "too small"
	ReasonWrongFormat      Reason = "wrong format"
	ReasonChecksumMismatch Reason = "checksum mismatch"
	ReasonSizeMismatch     Reason = "size mismatch"
)

// IntegrityError ...
type IntegrityError struct {
	Reason Reason
	Detail string
}

func (e *IntegrityError) Error() string {
	if e.Detail == "" {
		return "integrity check failed [" + string(e.Reason) + "]"
	}
	return "integrity check failed [" + string(e.Reason) + "] [" + e.Detail + "]"
}
