// Package catalog holds the purchasable plan definitions used by checkout and
// processor plan registration. Plans are loaded once at startup from a YAML
// file (or an in-memory source in tests) and validated before use.
package catalog
