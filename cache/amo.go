package cache

import "github.com/sarchlab/blockcache/message"

// applyAMO computes the post-op value for an AMO given the pre-op memory
// value and the request's operand, both truncated to the data width
// (spec.md §4.1, §9 "AMO round trip shape"). The pre-op value is what the
// processor observes in CacheResp; the post-op value is what gets written
// back through the same memory round trip.
func applyAMO(op message.RequestType, preOp, operand uint64, dataWidthBits int) uint64 {
	mask := widthMask(dataWidthBits)
	a := preOp & mask
	b := operand & mask

	switch op {
	case message.AmoAdd:
		return (a + b) & mask
	case message.AmoAnd:
		return a & b
	case message.AmoOr:
		return a | b
	case message.AmoSwap:
		return b
	case message.AmoXor:
		return a ^ b
	case message.AmoMin:
		if signExtend(a, dataWidthBits) < signExtend(b, dataWidthBits) {
			return a
		}
		return b
	case message.AmoMax:
		if signExtend(a, dataWidthBits) > signExtend(b, dataWidthBits) {
			return a
		}
		return b
	case message.AmoMinu:
		if a < b {
			return a
		}
		return b
	case message.AmoMaxu:
		if a > b {
			return a
		}
		return b
	default:
		panic("cache: applyAMO called with non-AMO request type " + op.String())
	}
}

func widthMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

func signExtend(v uint64, bits int) int64 {
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}
