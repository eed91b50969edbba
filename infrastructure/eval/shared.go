// Package eval implements the answer evaluation core: command extraction,
// word-count metrics, and verdict classification for answers produced by
// the assistant oracle.
package eval

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// foldCaser is a package-level Unicode case folder shared by the extractor
// and the classifier to avoid per-call allocation.
var foldCaser = cases.Fold()

// Common errors returned by evaluation components.
var (
	// ErrNilOracle is returned when a judge is constructed without a client.
	ErrNilOracle = errors.New("judge client cannot be nil")

	// ErrNoJSON is returned when a judge response contains no JSON object.
	ErrNoJSON = errors.New("no JSON object found in judge response")
)

// knownExecutables is the allow-list of executable names the extractor
// recognizes. It covers the package-management and system-utility verbs the
// assistant's answers instruct users to run; tokens outside this list never
// qualify a line as a command on their own.
var knownExecutables = map[string]struct{}{
	"pacman": {}, "paccache": {}, "pacman-key": {}, "makepkg": {},
	"yay": {}, "paru": {}, "flatpak": {}, "pacstrap": {},
	"systemctl": {}, "journalctl": {}, "systemd-analyze": {}, "loginctl": {},
	"timedatectl": {}, "localectl": {}, "hostnamectl": {},
	"mkinitcpio": {}, "grub-mkconfig": {}, "grub-install": {},
	"bootctl": {}, "efibootmgr": {},
	"ip": {}, "ping": {}, "nmcli": {}, "iwctl": {}, "dhcpcd": {}, "rfkill": {},
	"mount": {}, "umount": {}, "lsblk": {}, "blkid": {}, "fdisk": {},
	"parted": {}, "mkfs": {}, "mkswap": {}, "swapon": {}, "fsck": {},
	"btrfs": {}, "dd": {}, "wipefs": {}, "genfstab": {},
	"pactl": {}, "wpctl": {}, "alsamixer": {}, "pavucontrol": {},
	"xrandr": {}, "nvidia-smi": {}, "glxinfo": {},
	"lspci": {}, "lsusb": {}, "lsmod": {}, "modprobe": {}, "dmesg": {},
	"useradd": {}, "usermod": {}, "userdel": {}, "gpasswd": {},
	"passwd": {}, "visudo": {}, "chown": {}, "chmod": {},
	"rm": {}, "cp": {}, "mv": {}, "ln": {}, "mkdir": {}, "cat": {},
	"grep": {}, "sed": {}, "awk": {}, "find": {}, "tar": {},
	"curl": {}, "wget": {}, "git": {}, "ssh": {}, "rsync": {},
	"free": {}, "top": {}, "htop": {}, "df": {}, "du": {}, "uname": {},
	"reflector": {}, "reboot": {}, "shutdown": {}, "sync": {}, "chroot": {},
	"arch-chroot": {}, "localedef": {}, "locale-gen": {},
}

// privilegePrefixes are the escalation wrappers that may precede an
// executable on a command line.
var privilegePrefixes = map[string]struct{}{
	"sudo": {}, "doas": {}, "pkexec": {},
}

// executableOf returns the executable name a command line invokes, looking
// past privilege-escalation prefixes. The second return is false when the
// first meaningful token is not a recognized executable.
func executableOf(fields []string) (string, bool) {
	for _, f := range fields {
		if _, ok := privilegePrefixes[f]; ok {
			continue
		}
		// mkfs.ext4 and friends share the mkfs allow-list entry.
		name := f
		if i := strings.IndexByte(name, '.'); i > 0 {
			if _, ok := knownExecutables[name[:i]]; ok {
				return name[:i], true
			}
		}
		_, ok := knownExecutables[name]
		return name, ok
	}
	return "", false
}

// normalizeCommand collapses runs of whitespace so that the same literal
// command repeated verbatim deduplicates to a single extraction.
func normalizeCommand(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
