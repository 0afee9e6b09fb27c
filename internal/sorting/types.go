package sorting

import "strings"

// BaseType is the coarse class of a bookmark used by the by-type sort.
type BaseType uint8

const (
	BaseNone BaseType = iota
	BaseHotel
	BaseAnimals
	BaseBuilding
	BaseEntertainment
	BaseExchange
	BaseFood
	BaseGas
	BaseMedicine
	BaseMountain
	BaseMuseum
	BasePark
	BaseParking
	BaseReligiousPlace
	BaseShop
	BaseSights
	BaseSwim
	BaseWater
	baseCount
)

var baseTypeNames = [baseCount]string{
	"Others", "Hotels", "Animals", "Buildings", "Entertainment", "Exchange", "Food", "Gas",
	"Medicine", "Mountains", "Museums", "Parks", "Parking", "Religious places", "Shops",
	"Sights", "Swimming", "Water",
}

func (t BaseType) String() string {
	if t >= baseCount {
		return baseTypeNames[BaseNone]
	}
	return baseTypeNames[t]
}

// featureBaseTypes maps readable classificator names to base types.
// Lookups retry with the last "-" component dropped.
var featureBaseTypes = map[string]BaseType{
	"amenity-veterinary": BaseAnimals,
	"leisure-dog_park":   BaseAnimals,
	"tourism-zoo":        BaseAnimals,

	"amenity-bar":          BaseFood,
	"amenity-biergarten":   BaseFood,
	"amenity-pub":          BaseFood,
	"amenity-cafe":         BaseFood,
	"amenity-bbq":          BaseFood,
	"amenity-food_court":   BaseFood,
	"amenity-restaurant":   BaseFood,
	"leisure-picnic_table": BaseFood,
	"tourism-picnic_site":  BaseFood,
	"amenity-fast_food":    BaseFood,

	"amenity-college":        BaseBuilding,
	"amenity-courthouse":     BaseBuilding,
	"amenity-kindergarten":   BaseBuilding,
	"amenity-library":        BaseBuilding,
	"amenity-police":         BaseBuilding,
	"amenity-prison":         BaseBuilding,
	"amenity-school":         BaseBuilding,
	"building-university":    BaseBuilding,
	"building-train_station": BaseBuilding,
	"office":                 BaseBuilding,
	"office-diplomatic":      BaseBuilding,
	"office-lawyer":          BaseBuilding,

	"amenity-place_of_worship":           BaseReligiousPlace,
	"amenity-place_of_worship-buddhist":  BaseReligiousPlace,
	"amenity-place_of_worship-christian": BaseReligiousPlace,
	"amenity-place_of_worship-muslim":    BaseReligiousPlace,
	"amenity-place_of_worship-jewish":    BaseReligiousPlace,
	"amenity-grave_yard-christian":       BaseReligiousPlace,
	"landuse-cemetery-christian":         BaseReligiousPlace,

	"amenity-casino":                 BaseEntertainment,
	"amenity-cinema":                 BaseEntertainment,
	"amenity-nightclub":              BaseEntertainment,
	"amenity-theatre":                BaseEntertainment,
	"shop-bookmaker":                 BaseEntertainment,
	"tourism-theme_park":             BaseEntertainment,
	"leisure-fitness_centre":         BaseEntertainment,
	"leisure-skiing":                 BaseEntertainment,
	"leisure-sports_centre-climbing": BaseEntertainment,
	"leisure-sports_centre-shooting": BaseEntertainment,
	"leisure-sports_centre-yoga":     BaseEntertainment,
	"leisure-stadium":                BaseEntertainment,
	"sport":                          BaseEntertainment,

	"amenity-atm":              BaseExchange,
	"amenity-bank":             BaseExchange,
	"amenity-bureau_de_change": BaseExchange,
	"shop-money_lender":        BaseExchange,

	"amenity-charging_station": BaseGas,
	"amenity-fuel":             BaseGas,

	"tourism-alpine_hut":     BaseHotel,
	"tourism-apartment":      BaseHotel,
	"tourism-camp_site":      BaseHotel,
	"tourism-chalet":         BaseHotel,
	"tourism-guest_house":    BaseHotel,
	"tourism-hostel":         BaseHotel,
	"tourism-hotel":          BaseHotel,
	"tourism-motel":          BaseHotel,
	"tourism-resort":         BaseHotel,
	"tourism-wilderness_hut": BaseHotel,

	"amenity-childcare":       BaseMedicine,
	"amenity-clinic":          BaseMedicine,
	"amenity-dentist":         BaseMedicine,
	"amenity-doctors":         BaseMedicine,
	"amenity-hospital":        BaseMedicine,
	"amenity-pharmacy":        BaseMedicine,
	"emergency-defibrillator": BaseMedicine,

	"natural-bare_rock":     BaseMountain,
	"natural-cave_entrance": BaseMountain,
	"natural-peak":          BaseMountain,
	"natural-rock":          BaseMountain,
	"natural-volcano":       BaseMountain,

	"amenity-arts_centre": BaseMuseum,
	"tourism-gallery":     BaseMuseum,
	"tourism-museum":      BaseMuseum,

	"boundary-national_park": BasePark,
	"landuse-forest":         BasePark,
	"leisure-garden":         BasePark,
	"leisure-nature_reserve": BasePark,
	"leisure-park":           BasePark,

	"amenity-bicycle_parking":                 BaseParking,
	"amenity-bicycle_rental":                  BaseParking,
	"amenity-motorcycle_parking":              BaseParking,
	"amenity-parking":                         BaseParking,
	"amenity-vending_machine-parking_tickets": BaseParking,
	"highway-services":                        BaseParking,
	"tourism-caravan_site":                    BaseParking,

	"amenity-ice_cream":       BaseShop,
	"amenity-marketplace":     BaseShop,
	"amenity-vending_machine": BaseShop,
	"shop":                    BaseShop,

	"historic-archaeological_site": BaseSights,
	"historic-boundary_stone":      BaseSights,
	"historic-castle":              BaseSights,
	"historic-fort":                BaseSights,
	"historic-memorial":            BaseSights,
	"historic-monument":            BaseSights,
	"historic-ruins":               BaseSights,
	"historic-ship":                BaseSights,
	"historic-tomb":                BaseSights,
	"historic-wayside_cross":       BaseSights,
	"historic-wayside_shrine":      BaseSights,
	"tourism-artwork":              BaseSights,
	"tourism-attraction":           BaseSights,
	"tourism-information":          BaseSights,
	"tourism-viewpoint":            BaseSights,
	"waterway-waterfall":           BaseSights,

	"leisure-sports_centre-swimming": BaseSwim,
	"leisure-swimming_pool":          BaseSwim,
	"leisure-water_park":             BaseSwim,
	"natural-beach":                  BaseSwim,
	"sport-diving":                   BaseSwim,
	"sport-scuba_diving":             BaseSwim,
	"sport-swimming":                 BaseSwim,

	"amenity-drinking_water": BaseWater,
	"amenity-fountain":       BaseWater,
	"amenity-water_point":    BaseWater,
	"man_made-water_tap":     BaseWater,
	"natural-spring":         BaseWater,

	// transport and a few shops are known but deliberately unclassified
	"aeroway-aerodrome":         BaseNone,
	"amenity-bus_station":       BaseNone,
	"amenity-ferry_terminal":    BaseNone,
	"amenity-taxi":              BaseNone,
	"highway-bus_stop":          BaseNone,
	"railway-station":           BaseNone,
	"shop-funeral_directors":    BaseNone,
	"public_transport-platform": BaseNone,
}

// BaseTypeOf classifies a bookmark by its readable feature type names, e.g.
// "amenity-place_of_worship-christian". The first name with a known prefix wins.
func BaseTypeOf(typeNames []string) BaseType {
	for _, name := range typeNames {
		for {
			if t, ok := featureBaseTypes[name]; ok {
				return t
			}
			pos := strings.LastIndexByte(name, '-')
			if pos < 0 {
				break
			}
			name = name[:pos]
		}
	}
	return BaseNone
}
