package krypto

import (
	"crypto/cipher"
	"encoding/binary"
)

// ctrXOR applies the CTR keystream for plaintext offset off to data in
// place. Seeking into the stream is what keeps the envelopes
// random-access: block counters derive from the offset alone.
func ctrXOR(block cipher.Block, iv []byte, off int64, data []byte) {
	bs := int64(block.BlockSize())
	counter := make([]byte, bs)
	keystream := make([]byte, bs)

	blockNo := uint64(off / bs)
	skip := int(off % bs)

	for len(data) > 0 {
		copy(counter, iv)
		addCounter(counter, blockNo)
		block.Encrypt(keystream, counter)

		n := 0
		for i := skip; i < int(bs) && n < len(data); i++ {
			data[n] ^= keystream[i]
			n++
		}
		data = data[n:]
		skip = 0
		blockNo++
	}
}

// addCounter adds n to the big-endian counter held in the trailing eight
// bytes of c, propagating carries into the leading bytes.
func addCounter(c []byte, n uint64) {
	tail := len(c) - 8
	sum := binary.BigEndian.Uint64(c[tail:]) + n
	carry := sum < n
	binary.BigEndian.PutUint64(c[tail:], sum)

	for i := tail - 1; carry && i >= 0; i-- {
		c[i]++
		carry = c[i] == 0
	}
}
