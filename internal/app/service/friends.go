package service

import (
	"regexp"
	"strings"
)

var reMention = regexp.MustCompile(`<@!?(\d+)>`)

// ResolveGroup arma el grupo atómico a sentar: requester + menciones,
// deduplicado y sin el requester auto-mencionado. El orden no importa pero
// lo dejamos estable (requester primero) para logs y render.
func ResolveGroup(requesterXID, rawMentions string) []string {
	group := []string{requesterXID}
	seen := map[string]struct{}{requesterXID: {}}

	for _, m := range reMention.FindAllStringSubmatch(rawMentions, -1) {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		group = append(group, id)
	}

	// tolera ids pelados separados por espacios, ej "/mesa buscar amigos:123 456"
	for _, tok := range strings.Fields(rawMentions) {
		if !isDigits(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		group = append(group, tok)
	}

	return group
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
