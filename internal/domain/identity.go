package domain

import "strings"

// ClientIdentity accumulates what is known about the prospective client.
// Fields fill in incrementally over the conversation and are never erased:
// a non-empty value is only ever replaced by a newer non-empty value, and
// emails/phones grow as a de-duplicated union.
type ClientIdentity struct {
	Name            string   `json:"name,omitempty"`
	Emails          []string `json:"emails,omitempty"`
	Phones          []string `json:"phones,omitempty"`
	Organization    string   `json:"organization,omitempty"`
	CaseDescription string   `json:"case_description,omitempty"`
}

// Merge folds partial into the identity, non-empty values only.
// Returns true if anything changed.
func (ci *ClientIdentity) Merge(partial ClientIdentity) bool {
	changed := false

	if v := strings.TrimSpace(partial.Name); v != "" && v != ci.Name {
		ci.Name = v
		changed = true
	}
	if v := strings.TrimSpace(partial.Organization); v != "" && v != ci.Organization {
		ci.Organization = v
		changed = true
	}
	if v := strings.TrimSpace(partial.CaseDescription); v != "" && v != ci.CaseDescription {
		ci.CaseDescription = v
		changed = true
	}

	for _, e := range partial.Emails {
		if appendUnique(&ci.Emails, strings.ToLower(strings.TrimSpace(e))) {
			changed = true
		}
	}
	for _, p := range partial.Phones {
		if appendUnique(&ci.Phones, strings.TrimSpace(p)) {
			changed = true
		}
	}

	return changed
}

// HasContact reports whether at least one contact channel is known.
func (ci *ClientIdentity) HasContact() bool {
	return len(ci.Emails) > 0 || len(ci.Phones) > 0
}

// Fragments returns the identity values worth running through the
// conflict check: name, organization, and contact channels.
func (ci *ClientIdentity) Fragments() []string {
	var frags []string
	if ci.Name != "" {
		frags = append(frags, ci.Name)
	}
	if ci.Organization != "" {
		frags = append(frags, ci.Organization)
	}
	frags = append(frags, ci.Emails...)
	frags = append(frags, ci.Phones...)
	return frags
}

func appendUnique(dst *[]string, v string) bool {
	if v == "" {
		return false
	}
	for _, existing := range *dst {
		if existing == v {
			return false
		}
	}
	*dst = append(*dst, v)
	return true
}
