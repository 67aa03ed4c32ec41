package index

import (
	"bytes"
	"encoding/binary"
)

func clampPinned(p int) uint16 {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return uint16(p)
}

// key = invPinned(2) + invTime(8) + 0x00 + slug
// 取反让 cursor 正序遍历时先出置顶、再按时间新到旧
func makePinnedTimeSlugKey(pinned int, unixNano int64, slug string) []byte {
	invPinned := ^clampPinned(pinned)
	invTime := ^uint64(unixNano)

	buf := make([]byte, 0, 2+8+1+len(slug))

	tmp2 := make([]byte, 2)
	binary.BigEndian.PutUint16(tmp2, invPinned)
	buf = append(buf, tmp2...)

	tmp8 := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp8, invTime)
	buf = append(buf, tmp8...)

	buf = append(buf, 0x00)
	buf = append(buf, []byte(slug)...)
	return buf
}

func slugFromPinnedTimeSlugKey(k []byte) string {
	// invPinned(2) + invTime(8) + 0x00 + slug
	if len(k) < 2+8+2 {
		return ""
	}
	i := bytes.IndexByte(k[10:], 0x00)
	if i < 0 {
		return ""
	}
	pos := 10 + i
	if pos+1 >= len(k) {
		return ""
	}
	return string(k[pos+1:])
}
