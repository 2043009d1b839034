// Package ways provides hierarchy-driven resource and path resolution.
//
// The core code is in package 'core', token parsing is in package
// 'parse', and some command-line tools are in `cmd`.
//
// See https://github.com/ColinKennedy/ways/blob/master/README.md for more.
package ways
