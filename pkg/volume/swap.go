package volume

import "golang.org/x/sys/cpu"

var hostLittleEndian = !cpu.IsBigEndian

// HostLittleEndian reports whether the running machine is little-endian.
func HostLittleEndian() bool {
	return hostLittleEndian
}

// SwapFlags decides which byte swap a declared sample layout needs on a host.
// At most one flag is ever set.
func SwapFlags(bytesPerVoxel int, littleEndian, hostLittle bool) (swap16, swap32 bool) {
	mismatch := littleEndian != hostLittle
	swap16 = bytesPerVoxel == 2 && mismatch
	swap32 = bytesPerVoxel == 4 && mismatch
	return swap16, swap32
}

// Swap16 reverses the two low bytes of v.
func Swap16(v uint32) uint32 {
	return ((v & 0xFF) << 8) | ((v >> 8) & 0xFF)
}

// Swap32 reverses the four bytes of v.
func Swap32(v uint32) uint32 {
	return ((v & 0xFF) << 24) | ((v & 0xFF00) << 8) | ((v >> 8) & 0xFF00) | ((v >> 24) & 0xFF)
}
