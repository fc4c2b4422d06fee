package chatango

import (
	"html"
	"math/rand"
	"regexp"
	"strings"
)

const (
	// frameTerminator closes every outbound command frame.
	frameTerminator = "\r\n\x00"
	// pingFrame is the bare keep-alive frame: no verb, terminator only.
	pingFrame = "\r\n\x00"
)

// EncodeFrame joins command arguments with ':' and appends the frame
// terminator. The first argument is the verb.
func EncodeFrame(args ...string) string {
	return strings.Join(args, ":") + frameTerminator
}

// DecodeFrame splits an inbound text frame into verb and positional
// arguments. The verb is everything before the first ':'; handlers that
// carry ':' inside a body rejoin the tail themselves.
func DecodeFrame(frame string) (verb string, args []string) {
	frame = strings.TrimRight(frame, "\r\n\x00")
	parts := strings.SplitN(frame, ":", 2)
	verb = parts[0]
	if len(parts) == 2 {
		args = strings.Split(parts[1], ":")
	}
	return verb, args
}

// genUID generates the 16-digit decimal connection uid sent with bauth.
func genUID() string {
	const digits = "0123456789"
	b := make([]byte, 16)
	b[0] = digits[1+rand.Intn(9)]
	for i := 1; i < len(b); i++ {
		b[i] = digits[rand.Intn(10)]
	}
	return string(b)
}

// genMessageID generates the 4-letter lowercase tag sent with bm.
func genMessageID() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = byte('a' + rand.Intn(26))
	}
	return string(b)
}

// GetAnonName computes the display name of an anonymous user from the
// connection timestamp and the puid: position-wise digit sum mod 10 over
// the last four timestamp digits and the middle four puid digits,
// prefixed with "anon". Non-digit characters count as zero.
func GetAnonName(ts, puid string) string {
	puid = zfill(puid, 8)[4:8]
	ts = strings.SplitN(ts, ".", 2)[0]
	if len(ts) < 4 {
		ts = "3452"
	} else {
		ts = ts[len(ts)-4:]
	}
	out := make([]byte, 4)
	for i := 0; i < 4; i++ {
		out[i] = byte('0' + (digitVal(puid[i])+digitVal(ts[i]))%10)
	}
	return "anon" + string(out)
}

func digitVal(c byte) int {
	if c < '0' || c > '9' {
		return 0
	}
	return int(c - '0')
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

var (
	nameTagRe   = regexp.MustCompile(`<n(.*?)/>`)
	fontTagRe   = regexp.MustCompile(`<f(.*?)>`)
	fontTagPMRe = regexp.MustCompile(`<g(.*?)>`)
	fontSpecRe  = regexp.MustCompile(`x(\d{1,2})?([a-fA-F0-9]{6}|[a-fA-F0-9]{3})="(.*?)"`)
)

// cleanMessage strips the leading <n.../> and <f...> style tags from a raw
// message body, returning the plain text alongside the extracted name-color
// and font spec. <br> tags become newlines and entities are unescaped.
func cleanMessage(raw string, pm bool) (body, nameColor, fontSpec string) {
	fontRe := fontTagRe
	if pm {
		fontRe = fontTagPMRe
	}
	if m := nameTagRe.FindStringSubmatch(raw); m != nil {
		nameColor = m[1]
	}
	if m := fontRe.FindStringSubmatch(raw); m != nil {
		fontSpec = m[1]
	}
	body = fontRe.ReplaceAllString(raw, "")
	body = nameTagRe.ReplaceAllString(body, "")
	body = stripHTML(body)
	body = html.UnescapeString(body)
	body = strings.ReplaceAll(body, "\r", "\n")
	return body, nameColor, fontSpec
}

// stripHTML drops tags from a body, keeping text and turning <br> into
// newlines.
func stripHTML(msg string) string {
	parts := strings.Split(msg, "<")
	if len(parts) == 1 {
		return parts[0]
	}
	var b strings.Builder
	for _, data := range parts {
		split := strings.SplitN(data, ">", 2)
		if len(split) == 1 {
			b.WriteString(split[0])
		} else {
			if strings.HasPrefix(split[0], "br") {
				b.WriteString("\n")
			}
			b.WriteString(split[1])
		}
	}
	return b.String()
}

// parseFont reads a font spec extracted by cleanMessage and returns size,
// color and face, with the client defaults when the spec does not parse.
func parseFont(spec string) (size, color, face string) {
	m := fontSpecRe.FindStringSubmatch(spec)
	if m == nil {
		return "11", "000000", "0"
	}
	size, color, face = m[1], m[2], m[3]
	if size == "" {
		size = "11"
	}
	return size, color, face
}

// normalizeBody trims the trailing token of a cleaned body: any newline in
// the final space-separated token is dropped, then the result is trimmed.
// Idempotent on its own output.
func normalizeBody(body string) string {
	idx := strings.LastIndex(body, " ")
	if idx < 0 {
		return strings.TrimSpace(strings.ReplaceAll(body, "\n", ""))
	}
	body = body[:idx] + " " + strings.ReplaceAll(body[idx+1:], "\n", "")
	return strings.TrimSpace(body)
}

// messageCut splits a message into chunks of at most max characters so each
// chunk fits in its own bm frame.
func messageCut(message string, max int) []string {
	if max <= 0 {
		return []string{message}
	}
	var out []string
	for len(message) > max {
		out = append(out, message[:max])
		message = message[max:]
	}
	return append(out, message)
}

var mentionRe = regexp.MustCompile(`\s?@([a-zA-Z0-9]{1,20})\s?`)

// mentions returns the roster users referenced by @name in body, deduped,
// in order of first reference.
func mentions(body string, room *Room) []*User {
	var out []*User
	seen := map[*User]bool{}
	for _, m := range mentionRe.FindAllStringSubmatch(body, -1) {
		name := strings.ToLower(m[1])
		for _, u := range room.UserList() {
			if u.Name() == name && !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}
