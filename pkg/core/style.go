// pkg/core/style.go
package core

import "strings"

// PredefinedColor is one of the palette colors offered for bookmarks and tracks.
type PredefinedColor uint8

const (
	ColorNone PredefinedColor = iota
	ColorRed
	ColorPink
	ColorPurple
	ColorDeepPurple
	ColorBlue
	ColorLightBlue
	ColorCyan
	ColorTeal
	ColorGreen
	ColorLime
	ColorYellow
	ColorOrange
	ColorDeepOrange
	ColorBrown
	ColorGray
	ColorBlueGray
	colorCount
)

var predefinedColorNames = [...]string{
	"none", "red", "pink", "purple", "deeppurple", "blue", "lightblue", "cyan", "teal",
	"green", "lime", "yellow", "orange", "deeporange", "brown", "gray", "bluegray",
}

// predefinedColorRGBA holds the palette as 0xRRGGBBAA.
var predefinedColorRGBA = [...]uint32{
	0x00000000, 0xE51B23FF, 0xFF4182FF, 0x9B24B2FF, 0x6639BFFF, 0x0066CCFF, 0x249CF2FF,
	0x14BECDFF, 0x00A58CFF, 0x3C8C3CFF, 0x93BF39FF, 0xFFC800FF, 0xFF9600FF, 0xF06432FF,
	0x804633FF, 0x737373FF, 0x597380FF,
}

func (c PredefinedColor) String() string {
	if c >= colorCount {
		return "none"
	}
	return predefinedColorNames[c]
}

// RGBA returns the palette value as 0xRRGGBBAA.
func (c PredefinedColor) RGBA() uint32 {
	if c >= colorCount {
		return 0
	}
	return predefinedColorRGBA[c]
}

// ParsePredefinedColor is the inverse of String. Unknown names map to ColorNone.
func ParsePredefinedColor(s string) PredefinedColor {
	s = strings.ToLower(s)
	for i, name := range predefinedColorNames {
		if name == s {
			return PredefinedColor(i)
		}
	}
	return ColorNone
}

// ColorData is either a palette color or an arbitrary RGBA value.
type ColorData struct {
	Predefined PredefinedColor
	RGBA       uint32
}

// Value returns the effective 0xRRGGBBAA color.
func (c ColorData) Value() uint32 {
	if c.Predefined != ColorNone {
		return c.Predefined.RGBA()
	}
	return c.RGBA
}

// BookmarkIcon is the symbol drawn for a bookmark.
type BookmarkIcon uint16

const (
	IconNone BookmarkIcon = iota
	IconHotel
	IconAnimals
	IconBuddhism
	IconBuilding
	IconChristianity
	IconEntertainment
	IconExchange
	IconFood
	IconGas
	IconJudaism
	IconMedicine
	IconMountain
	IconMuseum
	IconIslam
	IconPark
	IconParking
	IconShop
	IconSights
	IconSwim
	IconWater
	IconBar
	IconTransport
	IconViewpoint
	IconSport
	IconPub
	IconArt
	IconBank
	IconCafe
	IconPharmacy
	IconStadium
	IconTheatre
	IconInformation
	IconChargingStation
	IconFastFood
	iconCount
)

var bookmarkIconNames = [...]string{
	"None", "Hotel", "Animals", "Buddhism", "Building", "Christianity", "Entertainment",
	"Exchange", "Food", "Gas", "Judaism", "Medicine", "Mountain", "Museum", "Islam", "Park",
	"Parking", "Shop", "Sights", "Swim", "Water", "Bar", "Transport", "Viewpoint", "Sport",
	"Pub", "Art", "Bank", "Cafe", "Pharmacy", "Stadium", "Theatre", "Information",
	"ChargingStation", "FastFood",
}

func (i BookmarkIcon) String() string {
	if i >= iconCount {
		return "None"
	}
	return bookmarkIconNames[i]
}

// ParseBookmarkIcon is the inverse of String. Unknown names map to IconNone.
func ParseBookmarkIcon(s string) BookmarkIcon {
	for i, name := range bookmarkIconNames {
		if strings.EqualFold(name, s) {
			return BookmarkIcon(i)
		}
	}
	return IconNone
}
