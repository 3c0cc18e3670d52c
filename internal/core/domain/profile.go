package domain

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// ContributorProfile is the demographic record attached 1:1 to a contributor
// identity. The auth core writes it once at contributor signup.
type ContributorProfile struct {
	IdentityID     string    `json:"-"`
	LegalFullName  string    `json:"legal_full_name"`
	ShowNamePublic bool      `json:"show_name_public"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	PhoneNumber    string    `json:"phone_number"`
	Country        string    `json:"country"`
	State          string    `json:"state,omitempty"`
	Nationality    string    `json:"nationality,omitempty"`
	Occupation     string    `json:"occupation,omitempty"`
	Gender         string    `json:"gender"`
	Height         string    `json:"height"`
	Weight         string    `json:"weight"`
	ShoeSize       string    `json:"shoe_size"`
	SkinTone       string    `json:"skin_tone"`
	HairColor      string    `json:"hair_color"`
	BodyTypeMale   string    `json:"body_type_male,omitempty"`
	BodyTypeFemale string    `json:"body_type_female,omitempty"`

	// Age is derived from DateOfBirth when the profile is returned.
	Age int `json:"age"`
}

// AgeOn returns the contributor's age in whole years at now. Someone born on
// Feb 29 turns a year older on Mar 1 in common years.
func (p *ContributorProfile) AgeOn(now time.Time) int {
	if p.DateOfBirth.IsZero() {
		return 0
	}
	dob := p.DateOfBirth.UTC()
	now = now.UTC()
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}
