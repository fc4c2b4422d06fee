package chatango

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	assert.Equal(t, "bauth:room:123:user:pass\r\n\x00", EncodeFrame("bauth", "room", "123", "user", "pass"))
	assert.Equal(t, "blogout\r\n\x00", EncodeFrame("blogout"))
	assert.Equal(t, pingFrame, "\r\n\x00")
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantVerb string
		wantArgs []string
	}{
		{
			name:     "verb with args",
			frame:    "ok:owner:puid:M:name:123:1.2.3.4:mods:0\r\n\x00",
			wantVerb: "ok",
			wantArgs: []string{"owner", "puid", "M", "name", "123", "1.2.3.4", "mods", "0"},
		},
		{
			name:     "bare verb",
			frame:    "nomore\r\n\x00",
			wantVerb: "nomore",
			wantArgs: nil,
		},
		{
			name:     "colons in body stay positional",
			frame:    "annc:1:room:a:b:c",
			wantVerb: "annc",
			wantArgs: []string{"1", "room", "a", "b", "c"},
		},
		{
			name:     "empty args preserved",
			frame:    "b:123::tname:puid",
			wantVerb: "b",
			wantArgs: []string{"123", "", "tname", "puid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verb, args := DecodeFrame(tt.frame)
			assert.Equal(t, tt.wantVerb, verb)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestGenUID(t *testing.T) {
	for i := 0; i < 50; i++ {
		uid := genUID()
		require.Len(t, uid, 16)
		assert.NotEqual(t, byte('0'), uid[0])
		for _, c := range uid {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestGenMessageID(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := genMessageID()
		require.Len(t, id, 4)
		for _, c := range id {
			assert.True(t, c >= 'a' && c <= 'z')
		}
	}
}

func TestGetAnonName(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		puid string
		want string
	}{
		{name: "zero timestamp digits", ts: "1500000000", puid: "12345678", want: "anon5678"},
		{name: "digit carry wraps", ts: "1234567890", puid: "87654321", want: "anon1111"},
		{name: "short timestamp falls back", ts: "123", puid: "555", want: "anon3907"},
		{name: "non digit puid counts as zero", ts: "9999", puid: "P1", want: "anon9990"},
		{name: "fractional timestamp truncated", ts: "7890.123456", puid: "87654321", want: "anon1111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetAnonName(tt.ts, tt.puid))
		})
	}
}

func TestCleanMessage(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		pm            bool
		wantBody      string
		wantNameColor string
		wantFontSpec  string
	}{
		{
			name:          "room style tags",
			raw:           `<n3c0/><f x11cc3300="1">hello world`,
			wantBody:      "hello world",
			wantNameColor: "3c0",
			wantFontSpec:  ` x11cc3300="1"`,
		},
		{
			name:     "plain body untouched",
			raw:      "hello world",
			wantBody: "hello world",
		},
		{
			name:     "br becomes newline",
			raw:      "line1<br/>line2",
			wantBody: "line1\nline2",
		},
		{
			name:     "entities unescaped",
			raw:      "fish &amp; chips &lt;3",
			wantBody: "fish & chips <3",
		},
		{
			name:     "pm g tags stripped",
			raw:      `<n3c0/><m v="1"><g xs0="0"><g x11cc3300="1">hi</g></g></m>`,
			pm:       true,
			wantBody: "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, nameColor, fontSpec := cleanMessage(tt.raw, tt.pm)
			assert.Equal(t, tt.wantBody, body)
			if tt.wantNameColor != "" {
				assert.Equal(t, tt.wantNameColor, nameColor)
			}
			if tt.wantFontSpec != "" {
				assert.Equal(t, tt.wantFontSpec, fontSpec)
			}
		})
	}
}

// Cleaning an already-clean body changes nothing.
func TestCleanMessageIdempotent(t *testing.T) {
	raws := []string{
		`<n3c0/><f x11cc3300="1">hello world`,
		"plain text",
		"multi<br/>line &amp; entities",
	}
	for _, raw := range raws {
		body, _, _ := cleanMessage(raw, false)
		again, _, _ := cleanMessage(body, false)
		assert.Equal(t, body, again)
	}
}

func TestParseFont(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantSize string
		wantCol  string
		wantFace string
	}{
		{name: "full spec", spec: `x11cc3300="1"`, wantSize: "11", wantCol: "cc3300", wantFace: "1"},
		{name: "short color no size", spec: `xf00="8"`, wantSize: "11", wantCol: "f00", wantFace: "8"},
		{name: "garbage falls back to defaults", spec: `xs0="0"`, wantSize: "11", wantCol: "000000", wantFace: "0"},
		{name: "empty falls back to defaults", spec: "", wantSize: "11", wantCol: "000000", wantFace: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, color, face := parseFont(tt.spec)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantCol, color)
			assert.Equal(t, tt.wantFace, face)
		})
	}
}

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trailing newline in last token", in: "hi there\n", want: "hi there"},
		{name: "single token", in: "word\n", want: "word"},
		{name: "already clean", in: "hi there", want: "hi there"},
		{name: "surrounding whitespace", in: "  hi there  ", want: "hi there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeBody(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, normalizeBody(got), "must be idempotent")
		})
	}
}

func TestMessageCut(t *testing.T) {
	assert.Equal(t, []string{"he", "ll", "o"}, messageCut("hello", 2))
	assert.Equal(t, []string{"hello"}, messageCut("hello", 10))
	assert.Equal(t, []string{""}, messageCut("", 5))
	long := strings.Repeat("x", 2801)
	chunks := messageCut(long, 2800)
	assert.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 2800)
	assert.Len(t, chunks[1], 1)
}
