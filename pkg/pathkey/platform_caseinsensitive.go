//go:build windows || darwin

package pathkey

const caseInsensitiveFS = true
