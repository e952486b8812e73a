// Package profile selects the sidebar configuration for a request.
//
// Raw profile records from a Repository are normalized into Profiles
// (stable unique ids, enabled flag, priority, Conditions, settings). The
// Selector matches each enabled profile against the resolved request
// context and keeps the best by priority and then specificity. When nothing
// matches, the implicit "default" profile carries the unmodified defaults.
//
// Condition dimensions form a closed set: content types, taxonomy terms,
// roles, languages, devices, authentication state and a weekly schedule.
// Malformed values never reject; they drop the constraint.
package profile
