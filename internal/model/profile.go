package model

import "github.com/dukerupert/homequest/internal/docstore"

// Profile defaults for a brand-new account and for normalizing stored values
// that are not valid numbers.
const (
	DefaultXP            = 0
	DefaultLevel         = 1
	DefaultXPToNextLevel = 100
	DefaultStreak        = 0
)

// Profile is the per-identity user document.
type Profile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	XP            int    `json:"xp"`
	Level         int    `json:"level"`
	XPToNextLevel int    `json:"xpToNextLevel"`
	Streak        int    `json:"streak"`
	Avatar        string `json:"avatar"`
	Address       string `json:"address,omitempty"`
	HomeName      string `json:"homeName,omitempty"`
	Roommates     int    `json:"roommates,omitempty"`
}

// DecodeProfile reads a profile document, substituting defaults for numeric
// fields whose stored values are not numbers. It returns the names of the
// fields that required correction so the caller can persist the fix.
func DecodeProfile(doc docstore.Document) (Profile, []string) {
	f := doc.Fields
	p := Profile{ID: doc.ID}
	var corrected []string

	p.Name, _ = stringField(f, "name")
	p.Email, _ = stringField(f, "email")
	p.Avatar, _ = stringField(f, "avatar")
	p.Address, _ = stringField(f, "address")
	p.HomeName, _ = stringField(f, "homeName")
	p.Roommates, _ = intField(f, "roommates")

	var ok bool
	if p.XP, ok = intField(f, "xp"); !ok {
		p.XP = DefaultXP
		corrected = append(corrected, "xp")
	}
	if p.Level, ok = intField(f, "level"); !ok {
		p.Level = DefaultLevel
		corrected = append(corrected, "level")
	}
	if p.XPToNextLevel, ok = intField(f, "xpToNextLevel"); !ok {
		p.XPToNextLevel = DefaultXPToNextLevel
		corrected = append(corrected, "xpToNextLevel")
	}
	if p.Streak, ok = intField(f, "streak"); !ok {
		p.Streak = DefaultStreak
		corrected = append(corrected, "streak")
	}

	return p, corrected
}

// Fields encodes the profile as a store document body.
func (p Profile) Fields() map[string]any {
	f := map[string]any{
		"id":            p.ID,
		"name":          p.Name,
		"email":         p.Email,
		"xp":            p.XP,
		"level":         p.Level,
		"xpToNextLevel": p.XPToNextLevel,
		"streak":        p.Streak,
		"avatar":        p.Avatar,
	}
	if p.Address != "" {
		f["address"] = p.Address
	}
	if p.HomeName != "" {
		f["homeName"] = p.HomeName
	}
	if p.Roommates != 0 {
		f["roommates"] = p.Roommates
	}
	return f
}
