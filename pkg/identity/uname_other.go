//go:build !unix

package identity

import "errors"

var errUnameUnsupported = errors.New("uname not supported on this platform")

func unameNodename() (string, error) {
	return "", errUnameUnsupported
}
