package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

var null = []byte("null")

// Param describes one positional parameter of a method.
type Param struct {
	Name     string
	Optional bool

	decode   func(json.RawMessage) (interface{}, error)
	fallback interface{}
}

// Arg is a Param whose decoded value has type T.
type Arg[T any] struct {
	Param
}

// Req declares a required parameter of type T.
func Req[T any](name string) Arg[T] {
	return Arg[T]{Param{Name: name, decode: decodeAs[T]}}
}

// Opt declares an optional parameter of type T, def is used when the caller
// omits it. Optional parameters must come last.
func Opt[T any](name string, def T) Arg[T] {
	return Arg[T]{Param{Name: name, Optional: true, decode: decodeAs[T], fallback: def}}
}

func decodeAs[T any](raw json.RawMessage) (interface{}, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeParams decodes raw against params. Methods without parameters accept
// an absent, null or empty list. Otherwise raw must be a list with at least
// every required parameter and at most all of them. Omitted or null optional
// parameters take their default, null is rejected for required ones.
func DecodeParams(raw json.RawMessage, params []Param) ([]interface{}, error) {
	var list []json.RawMessage
	raw = bytes.TrimSpace(raw)
	absent := len(raw) == 0 || bytes.Equal(raw, null)
	switch {
	case absent && len(params) == 0:
	case absent || raw[0] != '[':
		return nil, InvalidParams("not an array")
	default:
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, InvalidParams(err.Error())
		}
	}

	required := 0
	for _, p := range params {
		if !p.Optional {
			required++
		}
	}
	if len(params) == 0 && len(list) > 0 {
		return nil, InvalidParams("no parameters expected")
	}
	if len(list) < required || len(list) > len(params) {
		if required == len(params) {
			return nil, InvalidParams(fmt.Sprintf("expected %d parameters, got %d", required, len(list)))
		}
		return nil, InvalidParams(fmt.Sprintf("expected %d to %d parameters, got %d", required, len(params), len(list)))
	}

	args := make([]interface{}, len(params))
	for i, p := range params {
		if i >= len(list) || p.Optional && bytes.Equal(bytes.TrimSpace(list[i]), null) {
			args[i] = p.fallback
			continue
		}
		if bytes.Equal(bytes.TrimSpace(list[i]), null) {
			return nil, InvalidParams(fmt.Sprintf("argument %d (%s): null for required parameter", i, p.Name))
		}
		v, err := p.decode(list[i])
		if err != nil {
			return nil, InvalidParams(fmt.Sprintf("argument %d (%s): %v", i, p.Name, err))
		}
		args[i] = v
	}
	return args, nil
}

// Encode converts a handler result to its wire form.
func Encode(result interface{}) (json.RawMessage, error) {
	return json.Marshal(result)
}

// Handler runs a method on decoded arguments.
type Handler func(ctx context.Context, args []interface{}) (interface{}, error)

// Method is a named handler with its parameter schema.
type Method struct {
	Name    string
	Params  []Param
	Handler Handler
}

// NewMethod checks that optional parameters only trail required ones.
func NewMethod(name string, params []Param, handler Handler) Method {
	optional := false
	for _, p := range params {
		if optional && !p.Optional {
			panic(fmt.Sprintf("rpc: method %s has required parameter %s after an optional one", name, p.Name))
		}
		optional = optional || p.Optional
	}
	return Method{Name: name, Params: params, Handler: handler}
}

// Call decodes raw and invokes the handler.
func (m *Method) Call(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	args, err := DecodeParams(raw, m.Params)
	if err != nil {
		return nil, err
	}
	return m.Handler(ctx, args)
}

func Func0[R any](name string, fn func(context.Context) (R, error)) Method {
	return NewMethod(name, nil, func(ctx context.Context, _ []interface{}) (interface{}, error) {
		return fn(ctx)
	})
}

func Func1[A, R any](name string, a Arg[A], fn func(context.Context, A) (R, error)) Method {
	return NewMethod(name, []Param{a.Param}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return fn(ctx, args[0].(A))
	})
}

func Func2[A, B, R any](name string, a Arg[A], b Arg[B], fn func(context.Context, A, B) (R, error)) Method {
	return NewMethod(name, []Param{a.Param, b.Param}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return fn(ctx, args[0].(A), args[1].(B))
	})
}

func Func3[A, B, C, R any](name string, a Arg[A], b Arg[B], c Arg[C], fn func(context.Context, A, B, C) (R, error)) Method {
	return NewMethod(name, []Param{a.Param, b.Param, c.Param}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return fn(ctx, args[0].(A), args[1].(B), args[2].(C))
	})
}

func Func4[A, B, C, D, R any](name string, a Arg[A], b Arg[B], c Arg[C], d Arg[D], fn func(context.Context, A, B, C, D) (R, error)) Method {
	return NewMethod(name, []Param{a.Param, b.Param, c.Param, d.Param}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return fn(ctx, args[0].(A), args[1].(B), args[2].(C), args[3].(D))
	})
}

func Func5[A, B, C, D, E, R any](name string, a Arg[A], b Arg[B], c Arg[C], d Arg[D], e Arg[E], fn func(context.Context, A, B, C, D, E) (R, error)) Method {
	return NewMethod(name, []Param{a.Param, b.Param, c.Param, d.Param, e.Param}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return fn(ctx, args[0].(A), args[1].(B), args[2].(C), args[3].(D), args[4].(E))
	})
}
