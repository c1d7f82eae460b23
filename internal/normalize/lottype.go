package normalize

import "carpark-availability-backend/internal/feed"

// Lot-type codes are agency-specific strings and never shared across feeds:
// HDB and LTA use single letters (C/Y/H), URA uses short words. The tables
// below map each agency's vocabulary onto the shared VehicleCategory set.

var hdbLotTypes = map[string]feed.VehicleCategory{
	"C": feed.CategoryCar,
	"Y": feed.CategoryMotorcycle,
	"H": feed.CategoryHeavyVehicle,
	"S": feed.CategoryCar, // season-stall lots are car-sized
}

var ltaLotTypes = map[string]feed.VehicleCategory{
	"C": feed.CategoryCar,
	"Y": feed.CategoryMotorcycle,
	"H": feed.CategoryHeavyVehicle,
	"M": feed.CategoryMotorcycle,
}

var uraLotTypes = map[string]feed.VehicleCategory{
	"C":          feed.CategoryCar,
	"M":          feed.CategoryMotorcycle,
	"H":          feed.CategoryHeavyVehicle,
	"Car":        feed.CategoryCar,
	"Motorcycle": feed.CategoryMotorcycle,
}

// CategoryFor maps one agency's lot-type code to the shared vehicle
// category. Unrecognized codes map to CategoryUnknown rather than guessing.
func CategoryFor(a feed.Agency, lotType string) feed.VehicleCategory {
	var table map[string]feed.VehicleCategory
	switch a {
	case feed.AgencyHDB:
		table = hdbLotTypes
	case feed.AgencyLTA:
		table = ltaLotTypes
	case feed.AgencyURA:
		table = uraLotTypes
	default:
		return feed.CategoryUnknown
	}
	if cat, ok := table[lotType]; ok {
		return cat
	}
	return feed.CategoryUnknown
}
