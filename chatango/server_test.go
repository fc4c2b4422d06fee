package chatango

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetServerSpecials(t *testing.T) {
	tests := []struct {
		group string
		want  string
	}{
		{group: "mitvcanal", want: "s56.chatango.com"},
		{group: "de-livechat", want: "s5.chatango.com"},
		{group: "narutochatt", want: "s70.chatango.com"},
	}

	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			assert.Equal(t, tt.want, GetServer(tt.group))
		})
	}
}

func TestGetServerWeighted(t *testing.T) {
	tests := []struct {
		group string
		want  string
	}{
		{group: "pythonrpg", want: "s58.chatango.com"},
		{group: "linux", want: "s61.chatango.com"},
		{group: "a", want: "s5.chatango.com"},
	}

	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			assert.Equal(t, tt.want, GetServer(tt.group))
		})
	}
}

// Every name resolves to some shard from the known tables, deterministically.
func TestGetServerTotality(t *testing.T) {
	known := map[string]bool{}
	for _, sn := range specialServers {
		known[fmt.Sprintf("s%d.chatango.com", sn)] = true
	}
	for _, w := range serverWeights {
		known[fmt.Sprintf("s%d.chatango.com", w.shard)] = true
	}

	hostRe := regexp.MustCompile(`^s\d+\.chatango\.com$`)
	names := []string{
		"a", "z", "0", "9", "-", "room-with-dashes",
		"averylongroomname20c", "khux", "chatango", "aaaaaaaaa",
	}
	for _, name := range names {
		host := GetServer(name)
		assert.Regexp(t, hostRe, host)
		assert.True(t, known[host], "%q resolved outside the shard tables: %s", name, host)
		assert.Equal(t, host, GetServer(name), "resolution must be stable for %q", name)
	}
}
