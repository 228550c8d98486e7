package domain

import "strings"

// SkippedToken is a participant-list entry that could not be enrolled.
type SkippedToken struct {
	Position int    `json:"position"`
	Token    string `json:"token"`
	Reason   string `json:"reason"`
}

// ParticipantList is a parsed participant list.
type ParticipantList struct {
	Usernames []string
	Skipped   []SkippedToken
}

// ParseParticipantList splits a comma-separated list of usernames.
//
// Tokens are trimmed. A trailing empty token left by a dangling comma is
// dropped; interior empty tokens and invalid usernames are skipped and
// reported by their 0-based position. Repeated usernames (compared by
// UsernameKey) keep their first position.
func ParseParticipantList(raw string) ParticipantList {
	var out ParticipantList
	if strings.TrimSpace(raw) == "" {
		return out
	}
	tokens := strings.Split(raw, ",")
	if strings.TrimSpace(tokens[len(tokens)-1]) == "" {
		tokens = tokens[:len(tokens)-1]
	}
	seen := make(map[string]struct{}, len(tokens))
	for i, tok := range tokens {
		name := strings.TrimSpace(tok)
		switch {
		case name == "":
			out.Skipped = append(out.Skipped, SkippedToken{Position: i, Reason: "empty"})
			continue
		case !ValidUsername(name):
			out.Skipped = append(out.Skipped, SkippedToken{Position: i, Token: name, Reason: "invalid username"})
			continue
		}
		key := UsernameKey(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Usernames = append(out.Usernames, name)
	}
	return out
}
