package configs

// CloneFlagsArg is the index of the flags argument of clone(2). On s390x
// the stack pointer comes first.
const CloneFlagsArg = 1
