// Package extract recovers agent metadata from compiled BMAD agent documents.
//
// Compiled agents are markdown files that embed a single XML-like unit:
//
//	<agent id="..." name="pm" title="Product Manager" icon="🧭">
//	  <persona>
//	    <role>...</role>
//	    <identity>...</identity>
//	    <communication_style>...</communication_style>
//	    <principles>...</principles>
//	  </persona>
//	  <menu>
//	    <item cmd="plan">Create plan</item>
//	  </menu>
//	</agent>
//
// Extraction is pattern based and first-match only. Documents are assumed to
// carry one top-level unit; later repeats of a tag are ignored.
package extract

import "errors"

// ErrNoRecord is returned by callers that need an error value for a document
// without a recognizable <agent> tag.
var ErrNoRecord = errors.New("no agent tag found")

// MenuItem is one (trigger, description) entry of an agent menu.
type MenuItem struct {
	Trigger     string `json:"trigger"`
	Description string `json:"description"`
}

// Record is the flat metadata recovered from one compiled agent document.
type Record struct {
	ID                 string     `json:"id,omitempty"`
	Name               string     `json:"name"`
	Title              string     `json:"title"`
	Icon               string     `json:"icon"`
	Role               string     `json:"role,omitempty"`
	Identity           string     `json:"identity,omitempty"`
	CommunicationStyle string     `json:"communication_style,omitempty"`
	Principles         string     `json:"principles,omitempty"`
	Menu               []MenuItem `json:"menu,omitempty"`
}

// Defaults supplies attribute fallbacks when the <agent> tag omits them.
type Defaults struct {
	Name  string
	Title string
	Icon  string
}

// DefaultIcon is used when neither the document nor the caller supplies one.
const DefaultIcon = "🤖"
