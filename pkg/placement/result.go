// Package placement delivers converted content into the focused application
// through native automation, scripted automation or a clipboard paste.
package placement

import (
	"fmt"
	"maps"
)

// Method identifies the delivery channel.
type Method int

const (
	MethodNone Method = iota
	MethodNative
	MethodScripted
	MethodClipboardPaste
)

func (m Method) String() string {
	switch m {
	case MethodNative:
		return "native_automation"
	case MethodScripted:
		return "scripted_automation"
	case MethodClipboardPaste:
		return "clipboard_paste"
	}
	return "none"
}

// Result is the outcome of one placement. It is immutable: accessors return
// copies and WithMetadata returns a new value.
type Result struct {
	success  bool
	method   Method
	err      error
	metadata map[string]string
}

func Succeeded(method Method, metadata map[string]string) Result {
	return Result{success: true, method: method, metadata: maps.Clone(metadata)}
}

// Failed records a failure. A nil err is replaced by a generic one so that
// a failed Result always carries an error.
func Failed(method Method, err error, metadata map[string]string) Result {
	if err == nil {
		err = fmt.Errorf("%s placement failed", method)
	}
	return Result{method: method, err: err, metadata: maps.Clone(metadata)}
}

func (r Result) Success() bool  { return r.success }
func (r Result) Method() Method { return r.method }
func (r Result) Err() error     { return r.err }

// ErrorMessage is the error text, empty on success.
func (r Result) ErrorMessage() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

func (r Result) Metadata() map[string]string {
	if r.metadata == nil {
		return map[string]string{}
	}
	return maps.Clone(r.metadata)
}

func (r Result) WithMetadata(key, value string) Result {
	md := r.Metadata()
	md[key] = value
	r.metadata = md
	return r
}
