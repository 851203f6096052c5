package http

type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
	MethodOptions
)

// ParseMethod never fails: anything outside the supported set is MethodUnknown,
// which no route matches.
func ParseMethod(method []byte) Method {
	switch string(method) {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	case "OPTIONS":
		return MethodOptions
	}
	return MethodUnknown
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodOptions:
		return "OPTIONS"
	}
	return "UNKNOWN"
}
