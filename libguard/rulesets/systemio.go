package rulesets

import (
	"os"

	"github.com/landlock-lsm/go-landlock/landlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/configs"
)

var (
	ioReadSyscalls = []string{"read", "readv", "pread64", "preadv", "preadv2", "lseek"}

	ioWriteSyscalls = []string{"write", "writev", "pwrite64", "pwritev", "pwritev2", "fsync", "fdatasync", "lseek"}

	ioOpenSyscalls = []string{"open", "openat", "openat2", "creat"}

	ioMetadataSyscalls = []string{
		"stat", "lstat", "fstat", "newfstatat", "statx", "statfs", "fstatfs",
		"access", "faccessat", "faccessat2",
		"readlink", "readlinkat",
		"getdents", "getdents64", "getcwd",
	}

	ioIoctlSyscalls = []string{"ioctl"}

	ioCloseSyscalls = []string{"close", "close_range"}

	ioOtherSyscalls = []string{
		"fcntl", "dup", "dup2", "dup3", "flock", "fallocate",
		"mkdir", "mkdirat", "rmdir", "unlink", "unlinkat",
		"rename", "renameat", "renameat2", "link", "linkat", "symlink", "symlinkat",
		"chmod", "fchmod", "fchmodat", "chown", "fchown", "fchownat", "lchown",
		"utimensat", "sendfile", "copy_file_range", "splice", "tee",
	}
)

// Flags that let open(2) create, modify or truncate a file.
const openWriteFlags = unix.O_WRONLY | unix.O_RDWR | unix.O_APPEND | unix.O_CREAT |
	unix.O_EXCL | unix.O_TRUNC | (unix.O_TMPFILE &^ unix.O_DIRECTORY)

var dnsFiles = []string{
	"/etc/resolv.conf",
	"/etc/hosts",
	"/etc/nsswitch.conf",
	"/etc/host.conf",
	"/etc/gai.conf",
}

var sslPaths = []string{
	"/etc/ssl",
	"/etc/pki",
	"/etc/ca-certificates",
	"/usr/share/ca-certificates",
	"/usr/local/share/ca-certificates",
}

// SystemIO grants file and descriptor I/O.
//
// The path methods grant Landlock rights beneath a path together with the
// syscalls needed to use them, including unrestricted open. Landlock then
// limits which files can actually be opened.
type SystemIO struct {
	rules
}

func (SystemIO) Name() string {
	return "SystemIO"
}

// Everything allows every file I/O syscall.
func (s SystemIO) Everything() libguard.YesReally[SystemIO] {
	s.rules = s.allow(concat(ioReadSyscalls, ioWriteSyscalls, ioOpenSyscalls,
		ioMetadataSyscalls, ioIoctlSyscalls, ioCloseSyscalls, ioOtherSyscalls)...)
	return libguard.NewYesReally(s)
}

// AllowRead allows reading from any open descriptor.
func (s SystemIO) AllowRead() SystemIO {
	s.rules = s.allow(ioReadSyscalls...)
	return s
}

// AllowWrite allows writing to any open descriptor.
func (s SystemIO) AllowWrite() SystemIO {
	s.rules = s.allow(ioWriteSyscalls...)
	return s
}

// AllowOpen allows opening any file with any flags.
func (s SystemIO) AllowOpen() libguard.YesReally[SystemIO] {
	s.rules = s.allow(ioOpenSyscalls...)
	return libguard.NewYesReally(s)
}

// AllowOpenReadonly allows open and openat only when no flag that could
// create, modify or truncate the file is set. openat2 passes its flags in
// a struct and cannot be checked, so it stays denied.
func (s SystemIO) AllowOpenReadonly() SystemIO {
	s.rules = s.allowIf(
		when("open", configs.ArgMaskedEq(1, openWriteFlags, 0)),
		when("openat", configs.ArgMaskedEq(2, openWriteFlags, 0)),
	)
	return s
}

func (s SystemIO) AllowMetadata() SystemIO {
	s.rules = s.allow(ioMetadataSyscalls...)
	return s
}

func (s SystemIO) AllowIoctl() SystemIO {
	s.rules = s.allow(ioIoctlSyscalls...)
	return s
}

func (s SystemIO) AllowClose() SystemIO {
	s.rules = s.allow(ioCloseSyscalls...)
	return s
}

func (s SystemIO) AllowStdin() SystemIO {
	return s.AllowFileRead(0)
}

func (s SystemIO) AllowStdout() SystemIO {
	return s.AllowFileWrite(1)
}

func (s SystemIO) AllowStderr() SystemIO {
	return s.AllowFileWrite(2)
}

// AllowFileRead allows read(2) on fd only.
func (s SystemIO) AllowFileRead(fd uintptr) SystemIO {
	s.rules = s.allowIf(when("read", configs.ArgEq(0, uint64(fd))))
	return s
}

// AllowFileWrite allows write(2) on fd only.
func (s SystemIO) AllowFileWrite(fd uintptr) SystemIO {
	s.rules = s.allowIf(when("write", configs.ArgEq(0, uint64(fd))))
	return s
}

// AllowPath grants access beneath path along with the syscalls needed to
// open, inspect, read and write files there.
func (s SystemIO) AllowPath(path string, access landlock.AccessFSSet) SystemIO {
	s.rules = s.allowPath(path, access).
		allow(concat(ioOpenSyscalls, ioMetadataSyscalls, ioCloseSyscalls)...)
	if access&(configs.AccessReadFile|configs.AccessListDir) != 0 {
		s.rules = s.allow(ioReadSyscalls...)
	}
	if access&configs.AccessWriteFile != 0 {
		s.rules = s.allow(ioWriteSyscalls...)
	}
	if access&(configs.AccessRemove|configs.AccessRemoveDir) != 0 {
		s.rules = s.allow("unlink", "unlinkat", "rmdir")
	}
	if access&configs.AccessCreate != 0 {
		s.rules = s.allow("mkdir", "mkdirat")
	}
	return s
}

// AllowReadPath allows reading every file and listing every directory
// beneath path.
func (s SystemIO) AllowReadPath(path string) SystemIO {
	return s.AllowPath(path, configs.AccessReadTree)
}

func (s SystemIO) AllowReadFile(path string) SystemIO {
	return s.AllowPath(path, configs.AccessReadFile)
}

func (s SystemIO) AllowWriteFile(path string) SystemIO {
	return s.AllowPath(path, configs.AccessWriteFile)
}

// AllowCreateInDir allows creating files and directories in dir and
// writing to the files created there.
func (s SystemIO) AllowCreateInDir(dir string) SystemIO {
	return s.AllowPath(dir, configs.AccessCreate|configs.AccessWriteFile)
}

func (s SystemIO) AllowListDir(dir string) SystemIO {
	return s.AllowPath(dir, configs.AccessListDir)
}

func (s SystemIO) AllowRemoveFile(dir string) SystemIO {
	return s.AllowPath(dir, configs.AccessRemove)
}

func (s SystemIO) AllowRemoveDir(dir string) SystemIO {
	return s.AllowPath(dir, configs.AccessRemoveDir)
}

// AllowDNSFiles allows reading the resolver configuration files present on
// this system.
func (s SystemIO) AllowDNSFiles() SystemIO {
	return s.allowExisting(dnsFiles, configs.AccessReadFile)
}

// AllowSSLFiles allows reading the certificate stores present on this
// system.
func (s SystemIO) AllowSSLFiles() SystemIO {
	return s.allowExisting(sslPaths, configs.AccessReadTree)
}

func (s SystemIO) allowExisting(paths []string, access landlock.AccessFSSet) SystemIO {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			logrus.Debugf("skipping %s: %v", path, err)
			continue
		}
		s = s.AllowPath(path, access)
	}
	return s
}
