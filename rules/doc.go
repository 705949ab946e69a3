// Package rules holds the fixed, priority-ordered rule table and its
// evaluation engine. A rule matches when any one of its conditions is
// satisfied; the permissive OR is deliberate and favors over-triggering
// autonomous action over missing one.
package rules
