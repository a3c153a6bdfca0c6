package model

import (
	"strings"
	"time"
)

// Profile is the candidate's durable profile. Skills and InterestedRoles are
// sets: members are unique case-insensitively and keep their first spelling.
type Profile struct {
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	Qualification     string    `json:"qualification,omitempty"`
	College           string    `json:"college,omitempty"`
	CurrentSemester   string    `json:"current_semester,omitempty"`
	YearOfPassing     string    `json:"year_of_passing,omitempty"`
	CurrentlyPursuing string    `json:"currently_pursuing,omitempty"`
	Skills            []string  `json:"skills,omitempty"`
	InterestedRoles   []string  `json:"interested_roles,omitempty"`
	Resume            *Document `json:"resume,omitempty"`
	ProfilePicture    *Document `json:"profile_picture,omitempty"`
	IsComplete        bool      `json:"is_complete"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// ProfileUpdate is a partial profile. Nil fields are left untouched by a save.
type ProfileUpdate struct {
	FullName          *string
	Email             *string
	PhoneNumber       *string
	Qualification     *string
	College           *string
	CurrentSemester   *string
	YearOfPassing     *string
	CurrentlyPursuing *string
	Skills            *[]string
	InterestedRoles   *[]string
	Resume            *Document
	ProfilePicture    *Document
}

// Empty reports whether the update carries no fields at all.
func (u ProfileUpdate) Empty() bool {
	return u == ProfileUpdate{}
}

// Merge returns a copy of p with every non-nil field of u applied and
// IsComplete recomputed. p itself is not modified.
func (p Profile) Merge(u ProfileUpdate) Profile {
	out := p.Clone()
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setStr(&out.FullName, u.FullName)
	setStr(&out.Email, u.Email)
	setStr(&out.PhoneNumber, u.PhoneNumber)
	setStr(&out.Qualification, u.Qualification)
	setStr(&out.College, u.College)
	setStr(&out.CurrentSemester, u.CurrentSemester)
	setStr(&out.YearOfPassing, u.YearOfPassing)
	setStr(&out.CurrentlyPursuing, u.CurrentlyPursuing)
	if u.Skills != nil {
		out.Skills = UniqueFold(*u.Skills)
	}
	if u.InterestedRoles != nil {
		out.InterestedRoles = UniqueFold(*u.InterestedRoles)
	}
	if u.Resume != nil {
		out.Resume = u.Resume.Clone()
	}
	if u.ProfilePicture != nil {
		out.ProfilePicture = u.ProfilePicture.Clone()
	}
	out.IsComplete = out.FullName != "" && out.Email != ""
	return out
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	c := p
	if p.Skills != nil {
		c.Skills = append([]string(nil), p.Skills...)
	}
	if p.InterestedRoles != nil {
		c.InterestedRoles = append([]string(nil), p.InterestedRoles...)
	}
	c.Resume = p.Resume.Clone()
	c.ProfilePicture = p.ProfilePicture.Clone()
	return c
}

// UniqueFold trims items, drops blanks, and removes case-insensitive duplicates,
// keeping the first spelling seen.
func UniqueFold(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		k := strings.ToLower(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}
