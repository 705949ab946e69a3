// Package confidence computes the scalar gate that decides whether matched
// rule actions actually execute. The score blends data completeness and
// rule-match count with the historical success rate of comparable past
// decisions.
package confidence
