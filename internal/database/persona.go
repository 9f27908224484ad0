package database

import "strings"

// ResolvePersona selects the profile used to answer a sender: a profile
// whose phone matches the sender key wins, otherwise the active profile,
// otherwise the first profile. Returns nil when no profiles exist.
func ResolvePersona(profiles []Profile, senderKey string) *Profile {
	if len(profiles) == 0 {
		return nil
	}

	senderDigits := digitsOf(senderUser(senderKey))
	if senderDigits != "" {
		for i := range profiles {
			if p := &profiles[i]; p.Phone != "" && digitsOf(p.Phone) == senderDigits {
				return p
			}
		}
	}

	for i := range profiles {
		if profiles[i].Active {
			return &profiles[i]
		}
	}

	return &profiles[0]
}

// senderUser strips the JID server suffix from a sender key, e.g.
// "5215511110360@s.whatsapp.net" -> "5215511110360".
func senderUser(key string) string {
	if idx := strings.IndexByte(key, '@'); idx != -1 {
		return key[:idx]
	}
	return key
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
