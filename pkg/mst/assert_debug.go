//go:build mstdebug
// +build mstdebug

package mst

// built with -tags mstdebug: contract violations panic
const mstDebug = true
