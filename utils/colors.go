package utils

import (
	"crypto/md5"
	"fmt"
	"strconv"
)

// Corner colours used by the web client and Discord embeds
const (
	RedCornerColor  = 0xd62828
	BlueCornerColor = 0x1d4ed8
	DrawColor       = 0x6b7280
)

// FighterColor derives a stable accent colour from a fighter id, bright enough
// to read on a dark background
func FighterColor(fighterID string) string {
	hash := md5.Sum([]byte(fighterID))
	return ensureBrightness(fmt.Sprintf("%x", hash)[:6])
}

func ensureBrightness(hexColor string) string {
	r, _ := strconv.ParseInt(hexColor[0:2], 16, 64)
	g, _ := strconv.ParseInt(hexColor[2:4], 16, 64)
	b, _ := strconv.ParseInt(hexColor[4:6], 16, 64)

	// perceived luminance
	brightness := (r*299 + g*587 + b*114) / 1000
	if brightness < 128 {
		boost := 128 - brightness + 50
		r = min(255, r+boost)
		g = min(255, g+boost)
		b = min(255, b+boost)
	}

	return fmt.Sprintf("%02x%02x%02x", r, g, b)
}
