package messages

import "strings"

// SubjectMatches reports whether subj matches pattern, which may use the NATS
// wildcards * (one token) and > (one or more trailing tokens).
func SubjectMatches(pattern, subj string) bool {
	if pattern == subj {
		return true
	}
	pTok := strings.Split(pattern, ".")
	sTok := strings.Split(subj, ".")
	for i, pt := range pTok {
		if i >= len(sTok) {
			return false
		}
		switch pt {
		case ">":
			return true
		case "*":
			continue
		}
		if pt != sTok[i] {
			return false
		}
	}
	return len(sTok) == len(pTok)
}
