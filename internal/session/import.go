package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/amishk599/cvvin/internal/document"
	"github.com/amishk599/cvvin/internal/model"
)

// legacyProfileKey is the local-storage key the web app kept the profile under.
const legacyProfileKey = "cvvin_profile"

var errNotAProfile = errors.New("no profile fields found")

// ImportProfile reads a profile exported from the web app's local storage and
// saves it. data may be the profile object itself, or a dump of local storage
// in which cvvin_profile holds the profile as an object or a JSON string.
// Fields absent from the export are left untouched.
func (s *Store) ImportProfile(ctx context.Context, data []byte) (model.Profile, error) {
	u, err := parseLegacyProfile(data)
	if err != nil {
		return model.Profile{}, err
	}
	return s.SaveProfile(ctx, u)
}

func parseLegacyProfile(data []byte) (model.ProfileUpdate, error) {
	if !gjson.ValidBytes(data) {
		return model.ProfileUpdate{}, fmt.Errorf("import profile: invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if nested := root.Get(legacyProfileKey); nested.Exists() {
		switch nested.Type {
		case gjson.String:
			if !gjson.Valid(nested.Str) {
				return model.ProfileUpdate{}, fmt.Errorf("import profile: %s is not valid JSON", legacyProfileKey)
			}
			root = gjson.Parse(nested.Str)
		case gjson.JSON:
			root = nested
		}
	}

	var u model.ProfileUpdate
	str := func(dst **string, paths ...string) {
		for _, p := range paths {
			if v := root.Get(p); v.Exists() && v.Type != gjson.Null {
				s := strings.TrimSpace(v.String())
				*dst = &s
				return
			}
		}
	}
	list := func(dst **[]string, path string) {
		v := root.Get(path)
		if !v.Exists() || !v.IsArray() {
			return
		}
		var items []string
		for _, it := range v.Array() {
			items = append(items, it.String())
		}
		*dst = &items
	}

	str(&u.FullName, "fullName", "full_name", "name")
	str(&u.Email, "email")
	str(&u.PhoneNumber, "phoneNumber", "phone_number", "phone")
	str(&u.Qualification, "qualification")
	str(&u.College, "college")
	str(&u.CurrentSemester, "currentSemester", "current_semester")
	str(&u.YearOfPassing, "yearOfPassing", "year_of_passing")
	str(&u.CurrentlyPursuing, "currentlyPursuing", "currently_pursuing")
	list(&u.Skills, "skills")
	list(&u.InterestedRoles, "interestedRoles")
	if u.InterestedRoles == nil {
		list(&u.InterestedRoles, "interested_roles")
	}

	if resume := root.Get("resume"); resume.Type == gjson.JSON {
		up, err := legacyUpload(resume)
		if err != nil {
			return model.ProfileUpdate{}, fmt.Errorf("import profile: resume: %w", err)
		}
		if up != nil {
			doc, err := document.AcceptResume(*up, model.SourceProfileStored)
			if err != nil {
				return model.ProfileUpdate{}, fmt.Errorf("import profile: %w", err)
			}
			u.Resume = &doc
		}
	}

	if u.Empty() {
		return model.ProfileUpdate{}, fmt.Errorf("import profile: %w", errNotAProfile)
	}
	return u, nil
}

// legacyUpload decodes {"name": ..., "type": ..., "data": "<base64 or data URL>"}.
// A resume entry without data (the web app only kept the file name) yields nil.
func legacyUpload(v gjson.Result) (*model.Upload, error) {
	raw := v.Get("data").String()
	if raw == "" {
		return nil, nil
	}
	if _, after, ok := strings.Cut(raw, ";base64,"); ok {
		raw = after
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}
	return &model.Upload{
		Name: v.Get("name").String(),
		MIME: v.Get("type").String(),
		Data: data,
	}, nil
}
