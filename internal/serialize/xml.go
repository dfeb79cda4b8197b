// Package serialize renders agent state and tool catalogs into prompt text
// and parses tool invocations back out of model output. Two formats live
// here: the XML-shaped textual protocol used when a model has no native tool
// calling, and the provider-agnostic JSON schema used when it does.
package serialize

import (
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

// escapePCDATA escapes the characters that would derail an XML reader inside
// element text. Attribute values are left to the model to quote properly.
func escapePCDATA(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;").Replace(s)
}

// preprocessBlock re-escapes the payload of the candidate block so that raw
// shell-ish text like "ls && pwd" or "a < b" survives a standards-mode XML
// reader. Returns the block unchanged when there's nothing to fix.
func preprocessBlock(ptr string) string {
	if len(ptr) <= 2 || ptr[0] != '<' || ptr[1] == '/' {
		return ptr
	}
	nameEnd := strings.IndexAny(ptr, " >")
	if nameEnd < 0 {
		return ptr
	}
	tagName := ptr[1:nameEnd]
	payloadStart := strings.Index(ptr, ">")
	if payloadStart < 0 || strings.HasSuffix(tagName, "/") {
		return ptr
	}
	closing := "</" + tagName + ">"
	closingIdx := strings.Index(ptr, closing)
	if closingIdx < 0 || closingIdx <= payloadStart+1 {
		return ptr
	}
	payload := ptr[payloadStart+1 : closingIdx]
	if payload == "" {
		return ptr
	}
	if escaped := escapePCDATA(payload); escaped != payload {
		return strings.ReplaceAll(ptr, payload, escaped)
	}
	return ptr
}

type parsedBlock struct {
	processed   int
	invocations []models.Invocation
}

// tryParseBlock feeds one candidate block (starting at a '<') through an XML
// event reader and extracts at most one invocation. processed reports how
// many bytes of the original input were consumed, so the caller can advance
// past the block; zero means "nothing XML-shaped here, stop scanning".
func tryParseBlock(ptr string) parsedBlock {
	prev := len(ptr)
	pre := preprocessBlock(ptr)
	delta := len(pre) - prev

	dec := xml.NewDecoder(strings.NewReader(pre))
	var parsed parsedBlock

	var currName string
	var currAttrs map[string]string
	var currPayload *string

	for {
		tok, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				// malformed block, keep whatever was consumed so the
				// caller can skip past it
			}
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			currName = t.Name.Local
			currAttrs = nil
			if len(t.Attr) > 0 {
				currAttrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					currAttrs[a.Name.Local] = a.Value
				}
			}
			currPayload = nil
		case xml.CharData:
			data := string(t)
			currPayload = &data
		case xml.EndElement:
			if t.Name.Local == currName && currName != "" {
				inv := models.Invocation{
					Action:     currName,
					Attributes: currAttrs,
					Payload:    currPayload,
				}
				parsed.invocations = append(parsed.invocations, inv)
			}
			// one invocation per block, the outer scan resumes after it
			parsed.processed = int(dec.InputOffset()) - delta
			return parsed
		}
	}

	parsed.processed = int(dec.InputOffset()) - delta
	if parsed.processed < 0 {
		parsed.processed = 0
	}
	return parsed
}

// Parse scans a model response for XML-shaped tool invocations. Malformed
// blocks are skipped without aborting the scan; repeated identical calls are
// deduplicated preserving first occurrence. An input with no '<' sentinel
// yields an empty list.
func Parse(raw string) []models.Invocation {
	ptr := raw
	var parsed []models.Invocation

	for {
		openIdx := strings.Index(ptr, "<")
		if openIdx < 0 {
			break
		}
		ptr = ptr[openIdx:]

		block := tryParseBlock(ptr)
		if block.processed == 0 {
			break
		}
		parsed = append(parsed, block.invocations...)
		ptr = ptr[block.processed:]
	}

	// avoid running the same command twice per response
	var unique []models.Invocation
	for _, inv := range parsed {
		dup := false
		for _, seen := range unique {
			if seen.Same(inv) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, inv)
		}
	}
	return unique
}

// SerializeAction renders an action's usage example in tag form: attributes
// carry their example values, the payload slot carries the example payload.
// Actions with neither render as a self-closing tag.
func SerializeAction(a state.Action) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(a.Name)

	keys := make([]string, 0, len(a.ExampleAttributes))
	for k := range a.ExampleAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(a.ExampleAttributes[k])
		b.WriteString(`"`)
	}

	if a.ExamplePayload == nil && len(keys) == 0 {
		b.WriteString("/>")
		return b.String()
	}

	b.WriteString(">")
	if a.ExamplePayload != nil {
		b.WriteString(*a.ExamplePayload)
	}
	b.WriteString("</")
	b.WriteString(a.Name)
	b.WriteString(">")
	return b.String()
}

// SerializeStorage renders one storage for the system prompt. Empty storages
// render as the empty string and are omitted by the caller.
func SerializeStorage(s *state.Storage) string {
	entries := s.Entries()
	if len(entries) == 0 {
		return ""
	}

	switch s.Type {
	case state.StorageTagged:
		var b strings.Builder
		b.WriteString("<" + s.Name + ">\n")
		for _, e := range entries {
			b.WriteString("  - " + e.Key + "=" + e.Entry.Data + "\n")
		}
		b.WriteString("</" + s.Name + ">")
		return b.String()
	case state.StorageUntagged:
		var b strings.Builder
		b.WriteString("<" + s.Name + ">\n")
		for _, e := range entries {
			b.WriteString("  - " + e.Entry.Data + "\n")
		}
		b.WriteString("</" + s.Name + ">")
		return b.String()
	case state.StorageCompletion:
		var b strings.Builder
		b.WriteString("<" + s.Name + ">\n")
		for _, e := range entries {
			status := "not completed"
			if e.Entry.Complete {
				status = "COMPLETED"
			}
			b.WriteString("  - " + e.Entry.Data + " : " + status + "\n")
		}
		b.WriteString("</" + s.Name + ">")
		return b.String()
	case state.StorageCurrentPrevious:
		current, ok := s.Current()
		if !ok {
			return ""
		}
		out := "* Current " + s.Name + ": " + strings.TrimSpace(current)
		for _, e := range entries {
			if e.Key == "__previous" {
				out += "\n* Previous " + s.Name + ": " + strings.TrimSpace(e.Entry.Data)
			}
		}
		return out
	case state.StorageText:
		text, _ := s.Text()
		return text
	default:
		return ""
	}
}
