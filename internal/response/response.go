// Package response is the typed outcome returned by every mapper operation.
// It never formats output; a presentation layer renders it.
package response

import (
	"fmt"
	"net/http"

	dErrors "tranquility/pkg/domain-errors"
)

// Record is one projected item of content.
type Record map[string]any

// Message is a machine-routable and human-readable outcome note.
type Message struct {
	Code    int    `json:"code"`
	Text    string `json:"text"`
	Level   Level  `json:"level"`
	FieldID string `json:"fieldId,omitempty"`
}

// Meta is derived from content unless set explicitly.
type Meta struct {
	Count         int   `json:"count"`
	Code          int   `json:"code"`
	TransactionID int64 `json:"transactionId,omitempty"`
}

// Response carries status, content, messages and metadata.
type Response struct {
	code     int
	content  []Record
	groups   map[string][]Record
	messages []Message
	meta     Meta
}

var allowedCodes = map[int]struct{}{
	http.StatusOK:                  {},
	http.StatusBadRequest:          {},
	http.StatusUnauthorized:        {},
	http.StatusForbidden:           {},
	http.StatusNotFound:            {},
	http.StatusMethodNotAllowed:    {},
	http.StatusConflict:            {},
	http.StatusInternalServerError: {},
}

// New returns an empty 200 response.
func New() *Response {
	r := &Response{code: http.StatusOK}
	r.recalculate()
	return r
}

// Code returns the response status.
func (r *Response) Code() int {
	return r.code
}

// SetCode sets the status. Codes outside the supported set are rejected.
func (r *Response) SetCode(code int) error {
	if _, ok := allowedCodes[code]; !ok {
		return dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("unsupported response code %d", code))
	}
	r.code = code
	r.meta.Code = code
	return nil
}

// fail sets one of the known error statuses; it cannot be rejected.
func (r *Response) fail(code int) *Response {
	_ = r.SetCode(code)
	return r
}

// BadRequest marks the response 400.
func (r *Response) BadRequest() *Response { return r.fail(http.StatusBadRequest) }

// InternalError marks the response 500.
func (r *Response) InternalError() *Response { return r.fail(http.StatusInternalServerError) }

// Content returns the flat content list.
func (r *Response) Content() []Record {
	return r.content
}

// Groups returns grouped content, keyed by group name.
func (r *Response) Groups() map[string][]Record {
	return r.groups
}

// SetContent replaces the content and recalculates metadata.
func (r *Response) SetContent(records []Record) {
	r.content = records
	r.groups = nil
	r.recalculate()
}

// SetGroups replaces the content with named groups; the item count is the
// total across all groups.
func (r *Response) SetGroups(groups map[string][]Record) {
	r.content = nil
	r.groups = groups
	r.recalculate()
}

// AddMessage appends a catalog message.
func (r *Response) AddMessage(code int, level Level, fieldID string) {
	r.messages = append(r.messages, Message{
		Code:    code,
		Text:    Text(code),
		Level:   level,
		FieldID: fieldID,
	})
}

// AddMessages appends already-built messages.
func (r *Response) AddMessages(msgs ...Message) {
	r.messages = append(r.messages, msgs...)
}

// Messages returns the message list.
func (r *Response) Messages() []Message {
	return r.messages
}

// ClearMessages drops every message.
func (r *Response) ClearMessages() {
	r.messages = nil
}

// HasErrors reports whether any message is error level.
func (r *Response) HasErrors() bool {
	for _, m := range r.messages {
		if m.Level == LevelError {
			return true
		}
	}
	return false
}

// ContainsMessageCode reports whether a message with code is present.
func (r *Response) ContainsMessageCode(code int) bool {
	for _, m := range r.messages {
		if m.Code == code {
			return true
		}
	}
	return false
}

func (r *Response) ItemCount() int {
	return r.meta.Count
}

func (r *Response) MessageCount() int {
	return len(r.messages)
}

// AddTransactionID records the transaction that produced this outcome.
func (r *Response) AddTransactionID(id int64) {
	r.meta.TransactionID = id
}

func (r *Response) TransactionID() int64 {
	return r.meta.TransactionID
}

// Meta returns a copy of the metadata.
func (r *Response) Meta() Meta {
	return r.meta
}

func (r *Response) recalculate() {
	count := len(r.content)
	for _, g := range r.groups {
		count += len(g)
	}
	r.meta.Count = count
	r.meta.Code = r.code
}

// Document is the serialisable view of a response.
type Document struct {
	Meta     Meta                `json:"meta"`
	Messages []Message           `json:"messages"`
	Content  []Record            `json:"response,omitempty"`
	Groups   map[string][]Record `json:"groups,omitempty"`
}

// Document returns the response in a form presentation layers can encode.
func (r *Response) Document() Document {
	msgs := r.messages
	if msgs == nil {
		msgs = []Message{}
	}
	return Document{Meta: r.meta, Messages: msgs, Content: r.content, Groups: r.groups}
}
