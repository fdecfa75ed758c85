package render

import "image/color"

// fillBinaryRGBA converts binary cell states into RGBA pixels.
func fillBinaryRGBA(buf []byte, cells []uint8, on, off color.Color) {
	rOn, gOn, bOn, aOn := on.RGBA()
	rOff, gOff, bOff, aOff := off.RGBA()
	for i, c := range cells {
		base := i * 4
		if c != 0 {
			buf[base+0] = uint8(rOn >> 8)
			buf[base+1] = uint8(gOn >> 8)
			buf[base+2] = uint8(bOn >> 8)
			buf[base+3] = uint8(aOn >> 8)
			continue
		}
		buf[base+0] = uint8(rOff >> 8)
		buf[base+1] = uint8(gOff >> 8)
		buf[base+2] = uint8(bOff >> 8)
		buf[base+3] = uint8(aOff >> 8)
	}
}

// fillGrayRGBA maps noise values in [-1, 1] to opaque grey levels.
func fillGrayRGBA(buf []byte, values []float32) {
	for i, v := range values {
		t := (v + 1) / 2
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		g := uint8(t * 255)
		base := i * 4
		buf[base+0] = g
		buf[base+1] = g
		buf[base+2] = g
		buf[base+3] = 0xff
	}
}

// blitScaled copies a size×size RGBA buffer into dst at (ox, oy), each
// source pixel becoming a scale×scale block.
func blitScaled(dst []byte, stride int, src []byte, size, ox, oy, scale int) {
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			s := (y*size + x) * 4
			for dy := 0; dy < scale; dy++ {
				row := (oy+y*scale+dy)*stride + (ox+x*scale)*4
				for dx := 0; dx < scale; dx++ {
					copy(dst[row+dx*4:row+dx*4+4], src[s:s+4])
				}
			}
		}
	}
}
