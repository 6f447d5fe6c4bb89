// Package color assigns avatar colors to users who have not uploaded a
// picture.
package color

import (
	"fmt"
	"hash/fnv"
)

// Fixed saturation and lightness keep every generated color readable as
// a background for white initials; only the hue varies per user.
const (
	avatarSaturation = 0.4
	avatarLightness  = 0.65
)

// ForUser maps a user ID to a stable hex color. The same ID always
// yields the same color, so avatars do not shift between sessions.
func ForUser(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, avatarSaturation, avatarLightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts hue (0-360), saturation and lightness (0-1) into
// 8-bit RGB channels.
func hslToRGB(hue, sat, light float64) (uint8, uint8, uint8) {
	if sat == 0 {
		gray := uint8(light * 255)
		return gray, gray, gray
	}

	var q float64
	if light < 0.5 {
		q = light * (1 + sat)
	} else {
		q = light + sat - light*sat
	}
	p := 2*light - q

	h := hue / 360
	r := channel(p, q, h+1.0/3.0)
	g := channel(p, q, h)
	b := channel(p, q, h-1.0/3.0)
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}

func channel(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
