// Package viewquota meters anonymous post views: a cookie identifies the
// visitor, a windowed counter tracks views, and handlers consult the
// resulting allowance to decide between full and truncated content. It is
// orthogonal to the subscription access gates, which only apply to
// authenticated users.
package viewquota
