package rpc

import "fmt"

const (
	CodeParseError         = -32700
	CodeInvalidRequest     = -32600
	CodeMethodNotFound     = -32601
	CodeInvalidParams      = -32602
	CodeInternal           = -32603
	CodeUnsupported        = -32000
	CodeNoWork             = -32001
	CodeNoAuthor           = -32002
	CodeNoNewWork          = -32003
	CodeServiceUnavailable = -32004
	CodeTransaction        = -32010
	CodeCompilation        = -32050
)

// Error is a JSON-RPC error object. It satisfies the Error and DataError
// interfaces of go-ethereum/rpc.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Data)
	}
	return e.Message
}

func (e *Error) ErrorCode() int {
	return e.Code
}

func (e *Error) ErrorData() interface{} {
	return e.Data
}

func ParseError(detail string) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: detail}
}

func InvalidRequest(detail string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid request", Data: detail}
}

func MethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func InvalidParams(detail string) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: detail}
}

func Internal(err error) *Error {
	e := &Error{Code: CodeInternal, Message: "Internal error"}
	if err != nil {
		e.Data = err.Error()
	}
	return e
}

func StatePruned() *Error {
	return &Error{
		Code:    CodeUnsupported,
		Message: "This request is not supported because your node is running with state pruning. Run with --state.keep=0.",
	}
}

func Unimplemented() *Error {
	return &Error{Code: CodeUnsupported, Message: "This request is not implemented yet."}
}

func NoWork() *Error {
	return &Error{Code: CodeNoWork, Message: "Still syncing."}
}

func NoAuthor() *Error {
	return &Error{Code: CodeNoAuthor, Message: "Author not configured. Run with --mine.author to configure."}
}

func NoNewWork() *Error {
	return &Error{Code: CodeNoNewWork, Message: "Work has not changed."}
}

func ServiceUnavailable(name string) *Error {
	return &Error{Code: CodeServiceUnavailable, Message: "Service unavailable", Data: name}
}

func Transaction(err error) *Error {
	return &Error{Code: CodeTransaction, Message: err.Error()}
}

func Compilation(detail string) *Error {
	return &Error{Code: CodeCompilation, Message: "Error while compiling code.", Data: detail}
}
