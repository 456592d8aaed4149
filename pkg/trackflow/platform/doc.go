// Package platform holds the collaborator surfaces a worker relies on but
// does not implement: build version information, the license holder, host
// identification and device description, and plugin directory resolution.
//
// License content is never interpreted here. The holder only decides where
// the bytes come from (inline data wins over a file path) and hands them on.
package platform
