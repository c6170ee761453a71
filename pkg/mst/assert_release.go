//go:build !mstdebug
// +build !mstdebug

package mst

const mstDebug = false
