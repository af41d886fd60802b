package arvik

import "os"

// Unix permission bits as stored in the mode field of a member header.
const (
	S_IXOTH = 1 << iota // 00001
	S_IWOTH             // 00002
	S_IROTH             // 00004
	S_IXGRP             // 00010
	S_IWGRP             // 00020
	S_IRGRP             // 00040
	S_IXUSR             // 00100
	S_IWUSR             // 00200
	S_IRUSR             // 00400
	S_ISVTX             // 01000
	S_ISGID             // 02000
	S_ISUID             // 04000
)

const S_IRWXO = S_IXOTH | S_IWOTH | S_IROTH
const S_IRWXG = S_IXGRP | S_IWGRP | S_IRGRP
const S_IRWXU = S_IXUSR | S_IWUSR | S_IRUSR

// ModeMask covers every bit the mode field can carry. File type bits are never
// stored since the archive only holds regular files.
const ModeMask = S_ISUID | S_ISGID | S_ISVTX | S_IRWXU | S_IRWXG | S_IRWXO

// UnixMode converts an [os.FileMode] to the unix permission bits stored in the
// archive. Anything besides permission and setuid/setgid/sticky bits is dropped.
func UnixMode(mode os.FileMode) uint32 {
	bits := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		bits |= S_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		bits |= S_ISGID
	}
	if mode&os.ModeSticky != 0 {
		bits |= S_ISVTX
	}
	return bits
}

// FileMode is the inverse of [UnixMode].
func FileMode(bits uint32) os.FileMode {
	mode := os.FileMode(bits & 0o777)
	if bits&S_ISUID != 0 {
		mode |= os.ModeSetuid
	}
	if bits&S_ISGID != 0 {
		mode |= os.ModeSetgid
	}
	if bits&S_ISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

// ModeString renders permission bits the way `ls -l` does, without the leading
// file type character, e.g. "rwsr-xr-T".
func ModeString(mode os.FileMode) string {
	bits := UnixMode(mode)
	out := []byte("---------")

	triplets := []struct {
		read, write, exec uint32
		special           uint32
		specialChar       byte
	}{
		{S_IRUSR, S_IWUSR, S_IXUSR, S_ISUID, 's'},
		{S_IRGRP, S_IWGRP, S_IXGRP, S_ISGID, 's'},
		{S_IROTH, S_IWOTH, S_IXOTH, S_ISVTX, 't'},
	}

	for i, triplet := range triplets {
		if bits&triplet.read != 0 {
			out[i*3] = 'r'
		}
		if bits&triplet.write != 0 {
			out[i*3+1] = 'w'
		}

		executable := bits&triplet.exec != 0
		switch {
		case bits&triplet.special != 0 && executable:
			out[i*3+2] = triplet.specialChar
		case bits&triplet.special != 0:
			// Special bit set without the execute bit is shown in upper case.
			out[i*3+2] = triplet.specialChar - 'a' + 'A'
		case executable:
			out[i*3+2] = 'x'
		}
	}
	return string(out)
}
