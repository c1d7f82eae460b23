package feed

import "time"

// Agency identifies one of the three availability data providers.
type Agency string

const (
	AgencyHDB Agency = "HDB"
	AgencyLTA Agency = "LTA"
	AgencyURA Agency = "URA"
)

// VehicleCategory is the cross-agency vehicle classification. Each agency
// reports lot types with its own strings; CategoryFor in the normalize
// package maps them onto this shared set.
type VehicleCategory string

const (
	CategoryCar          VehicleCategory = "car"
	CategoryMotorcycle   VehicleCategory = "motorcycle"
	CategoryHeavyVehicle VehicleCategory = "heavy_vehicle"
	CategoryUnknown      VehicleCategory = "unknown"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StandardizedCarPark is the agency-agnostic availability record. ExternalID
// is the identifier the originating agency uses (e.g. HDB's carpark_number),
// not the catalog primary key. AvailableLots is always present and
// non-negative; TotalLots is nil when the agency does not report it.
type StandardizedCarPark struct {
	ExternalID    string          `json:"id"`
	Agency        Agency          `json:"agency"`
	LotType       string          `json:"lotType"`
	Category      VehicleCategory `json:"category"`
	TotalLots     *int            `json:"totalLots"`
	AvailableLots int             `json:"availableLots"`
	Location      string          `json:"location,omitempty"`
	Coordinates   *Coordinates    `json:"coordinates,omitempty"`
	Area          string          `json:"area,omitempty"`
	Development   string          `json:"development,omitempty"`
	LastUpdated   time.Time       `json:"lastUpdated"`
}

// Failure records one agency's fetch or validation failure during an
// aggregation pass, so callers can tell "some agencies down" from healthy.
type Failure struct {
	Agency Agency `json:"agency"`
	Err    error  `json:"-"`
}

// Message exposes the failure cause for JSON responses and logs.
func (f Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}
