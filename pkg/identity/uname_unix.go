//go:build unix

package identity

import "golang.org/x/sys/unix"

func unameNodename() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}

	return unix.ByteSliceToString(uts.Nodename[:]), nil
}
