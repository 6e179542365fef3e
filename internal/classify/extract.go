package classify

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Extractor pulls the human-actionable part out of a payload of a known
// engine format. It returns "" when the payload is not in its format.
type Extractor struct {
	Name    string
	Extract func(raw string) string
}

// Extractors are tried in order.
var Extractors = []Extractor{
	{Name: "blazegraph", Extract: extractBlazegraph},
	{Name: "virtuoso", Extract: extractVirtuoso},
	{Name: "triplydb", Extract: extractTriplyDB},
	{Name: "qlever", Extract: extractQLever},
	{Name: "json", Extract: extractJSONBody},
}

// stackFrameMarkers start a Java stack trace, raw or as escaped text.
var stackFrameMarkers = []string{"\n\tat ", "\\n\\tat ", "\tat ", "\\tat ", "\n    at "}

// Extract runs the extractors and returns the first non-empty message.
func Extract(raw string) string {
	for _, e := range Extractors {
		if msg := strings.TrimSpace(e.Extract(raw)); msg != "" {
			return msg
		}
	}
	return ""
}

func extractBlazegraph(raw string) string {
	const marker = "java.util.concurrent.ExecutionException"
	i := strings.Index(raw, marker)
	if i < 0 {
		return ""
	}
	tail := cutStackFrames(raw[i+len(marker):])
	tail = decodeEscapes(tail)
	return strings.TrimSpace(strings.TrimLeft(tail, ": "))
}

// virtuosoMarkers identify a Virtuoso error text. QLever and others also
// echo "SPARQL query:", so the end marker alone is not enough.
var virtuosoMarkers = []string{"Virtuoso", "SPARQL compiler"}

func extractVirtuoso(raw string) string {
	const start, end = "Response: b'", "SPARQL query:"
	i := strings.Index(raw, start)
	if i < 0 {
		return ""
	}
	rest := raw[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	msg := rest[:j]
	for _, m := range virtuosoMarkers {
		if strings.Contains(msg, m) {
			return strings.TrimSpace(decodeEscapes(msg))
		}
	}
	return ""
}

func extractTriplyDB(raw string) string {
	const marker = "Response:\nb'"
	i := strings.Index(raw, marker)
	if i < 0 {
		return ""
	}
	body := strings.TrimSuffix(strings.TrimSpace(raw[i+len(marker):]), "'")
	obj := firstJSONObject(decodeEscapes(body))
	if obj == nil {
		return ""
	}
	for _, key := range []string{"message", "exception"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func extractQLever(raw string) string {
	const marker = "Not supported:"
	i := strings.Index(raw, marker)
	if i < 0 {
		return ""
	}
	rest := decodeEscapes(raw[i+len(marker):])
	j := strings.Index(rest, "{")
	if j < 0 {
		return strings.TrimSpace(firstLine(rest))
	}
	text, ok := balancedObject(rest[j:])
	if !ok {
		return strings.TrimSpace(firstLine(rest))
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		if s, ok := obj["exception"].(string); ok && s != "" {
			return s
		}
	}
	return text
}

// extractJSONBody handles plain JSON error bodies such as QLever's
// {"exception": "..."}.
func extractJSONBody(raw string) string {
	obj := firstJSONObject(raw)
	if obj == nil {
		return ""
	}
	for _, key := range []string{"exception", "message", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstJSONObject(s string) map[string]any {
	i := strings.Index(s, "{")
	if i < 0 {
		return nil
	}
	text, ok := balancedObject(s[i:])
	if !ok {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil
	}
	return obj
}

// balancedObject returns the prefix of s forming a brace-balanced object,
// honoring JSON strings.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func cutStackFrames(s string) string {
	cut := len(s)
	for _, m := range stackFrameMarkers {
		if i := strings.Index(s, m); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// decodeEscapes resolves \uXXXX, \xXX, \n, \t, \r, \', \" and \\ sequences
// as they appear in repr-style payloads. Invalid escapes are kept verbatim.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch n := s[i+1]; n {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '\'', '"', '\\':
			b.WriteByte(n)
			i++
		case 'u':
			if i+6 <= len(s) {
				if r, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					b.WriteRune(rune(r))
					i += 5
					continue
				}
			}
			b.WriteByte(c)
		case 'x':
			if i+4 <= len(s) {
				if r, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
					b.WriteByte(byte(r))
					i += 3
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
