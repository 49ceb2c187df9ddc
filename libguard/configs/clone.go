//go:build !s390x

package configs

// CloneFlagsArg is the index of the flags argument of clone(2).
const CloneFlagsArg = 0
