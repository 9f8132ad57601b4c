// Package rules implements the ordered filter-rule engine applied to parsed
// feed entries. Rules are evaluated in list order; the first fully passing
// rule accepts an entry and activates its tag and agent overrides, while a
// rejection carries the name of the failing predicate as a reason code.
package rules
