// Package ids packs and unpacks the composite and global block identifiers
// that label entries in the proximity graph and address bucket blocks.
//
// Composite ID layout (64 bits): cid(8) | bid(24) | offset(32).
// Global block ID layout (32 bits): cid(8) | bid(24).
package ids

const (
	cidBits = 8
	bidBits = 24

	cidMask    = (uint64(1) << cidBits) - 1
	bidMask    = (uint64(1) << bidBits) - 1
	offsetMask = uint64(0xffffffff)
)

// Compose packs a coarse-cluster index, bucket index, and in-bucket offset
// into a composite 64-bit graph-node label.
func Compose(cid, bid, offset uint32) uint64 {
	var ret uint64
	ret |= uint64(cid) & cidMask
	ret <<= bidBits
	ret |= uint64(bid) & bidMask
	ret <<= 32
	ret |= uint64(offset) & offsetMask
	return ret
}

// Parse decomposes a composite label back into (cid, bid, offset).
func Parse(id uint64) (cid, bid, offset uint32) {
	offset = uint32(id & offsetMask)
	id >>= 32
	bid = uint32(id & bidMask)
	id >>= bidBits
	cid = uint32(id & cidMask)
	return cid, bid, offset
}

// ComposeBlock packs a coarse-cluster index and bucket index into a global
// 32-bit block ID used to address a block during search.
func ComposeBlock(cid, bid uint32) uint32 {
	return (cid << bidBits) | (bid & uint32(bidMask))
}

// ParseBlock decomposes a global block ID back into (cid, bid).
func ParseBlock(id uint32) (cid, bid uint32) {
	bid = id & uint32(bidMask)
	cid = id >> bidBits
	return cid, bid
}
