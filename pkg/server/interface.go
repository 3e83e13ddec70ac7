/*
Package server implements msgpack IPC for mention autocomplete.

The server speaks msgpack over stdin/stdout. The host editor writes a stream of
request maps and reads a stream of response maps; every response carries the id
of the request it answers. Logs never go to stdout.

# IPC

Every request is one envelope with an action and the fields that action uses:

	{"id": "1", "action": "attach"}
	{"id": "2", "action": "match", "sid": "9b1d...", "trigger": "@", "text": "hi @bo"}
	{"id": "3", "action": "suggest", "sid": "9b1d...", "trigger": "@", "q": "bo", "render": true}
	{"id": "4", "action": "insert", "sid": "9b1d...", "trigger": "@", "value": "@Bob Smith"}

attach opens a session for one editor and answers with its id. Sessions own
their caches and the last matched span, so two editors never see each other's
state. detach closes a session and drops its caches.

suggest is answered asynchronously. Cached answers come back immediately; the
rest once the lookup returns:

	{"id": "3", "trigger": "@", "q": "bo", "rid": 7, "s": [{"id": "12", "n": "Bob", "m": "<li ...>"}], "c": 1, "cached": false, "t": 5120}

Only the newest suggest per trigger and session is answered. A superseded
request, a query shorter than min_chars or a failed lookup produce no frame at
all, so hosts must not block on a suggest response.

highlight and emoji are stateless helpers for hosts that render on their own:

	{"id": "5", "action": "highlight", "item": "<li>Bob</li>", "q": "bo"}
	{"id": "6", "action": "emoji", "value": "smile"}

config updates the [mention] section and saves it. New sessions pick the new
values up; attached sessions keep theirs.

	{"id": "7", "action": "config", "min_chars": 3}

Failures of any action come back as CompletionError.
*/
package server

// Request is the single request envelope. Unused fields are omitted.
type Request struct {
	ID      string `msgpack:"id"`
	Action  string `msgpack:"action"`
	Session string `msgpack:"sid,omitempty"`
	Trigger string `msgpack:"trigger,omitempty"`
	Text    string `msgpack:"text,omitempty"`
	// Space overrides should_start_with_space for match and symbol.
	Space  *bool  `msgpack:"space,omitempty"`
	Query  string `msgpack:"q,omitempty"`
	Value  string `msgpack:"value,omitempty"`
	Item   string `msgpack:"item,omitempty"`
	Render bool   `msgpack:"render,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`

	// config only
	MinChars       *int  `msgpack:"min_chars,omitempty"`
	MaxItems       *int  `msgpack:"max_items,omitempty"`
	ServerLimit    *int  `msgpack:"server_limit,omitempty"`
	StartWithSpace *bool `msgpack:"should_start_with_space,omitempty"`
}

// AttachResponse answers attach.
type AttachResponse struct {
	ID       string   `msgpack:"id"`
	Session  string   `msgpack:"sid"`
	Triggers []string `msgpack:"triggers"`
}

// MatchResponse answers match and symbol.
type MatchResponse struct {
	ID      string `msgpack:"id"`
	Trigger string `msgpack:"trigger"`
	Query   string `msgpack:"q"`
	OK      bool   `msgpack:"ok"`
}

// Suggestion is one candidate as sent to the host.
type Suggestion struct {
	ID     string         `msgpack:"id"`
	Name   string         `msgpack:"n"`
	Extra  map[string]any `msgpack:"x,omitempty"`
	Markup string         `msgpack:"m,omitempty"`
}

// SuggestResponse answers suggest, possibly long after the request.
type SuggestResponse struct {
	ID          string       `msgpack:"id"`
	Trigger     string       `msgpack:"trigger"`
	Query       string       `msgpack:"q"`
	RequestID   uint64       `msgpack:"rid"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	Cached      bool         `msgpack:"cached"`
	TimeTaken   int64        `msgpack:"t"` // microseconds
}

// TextResponse answers insert, highlight and emoji.
type TextResponse struct {
	ID   string `msgpack:"id"`
	Text string `msgpack:"text"`
}

// StatusResponse answers detach.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ConfigResponse answers config with the values now in effect for new sessions.
type ConfigResponse struct {
	ID                   string `msgpack:"id"`
	Status               string `msgpack:"status"`
	MinChars             int    `msgpack:"min_chars"`
	MaxItems             int    `msgpack:"max_items"`
	ServerLimit          int    `msgpack:"server_limit"`
	ShouldStartWithSpace bool   `msgpack:"should_start_with_space"`
}

// CompletionError holds basic error information for failed requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
