//go:build unix

package archive

import (
	"os"
	"syscall"
)

func ownerOf(info os.FileInfo) (uid int, gid int) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return int(stat.Uid), int(stat.Gid)
}
