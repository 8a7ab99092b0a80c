package models

import "math"

// Location - координата с необязательным адресом
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

const earthRadiusKM = 6371.0

// DistanceKM возвращает расстояние по формуле гаверсинуса
func (l Location) DistanceKM(other Location) float64 {
	dLat := deg2rad(other.Latitude - l.Latitude)
	dLon := deg2rad(other.Longitude - l.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(l.Latitude))*math.Cos(deg2rad(other.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
