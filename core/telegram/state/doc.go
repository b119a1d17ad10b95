// Package state keeps one pending input continuation per user. Arming a new
// continuation replaces the previous one; nothing is stacked.
package state
